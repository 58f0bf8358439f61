package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"promptlab/internal/config"
	"promptlab/internal/db"
	"promptlab/internal/llm"
	"promptlab/internal/logger"
	"promptlab/internal/server"
	"promptlab/internal/services"
	"promptlab/internal/version"
)

func main() {
	// Essential command line flags only (GNU-style double dashes)
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/promptlab/config.json)")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPathFlag := flag.String("db", "", "Path to the template database (overrides config)")
	templateDirFlag := flag.String("templates", "", "Directory of template markdown files to import at startup")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	setupFlag := flag.Bool("setup", false, "Create the default configuration file")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	// Override flag usage text to show clean, simple usage
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Run with default configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --setup                # Create the default config file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --addr :9000           # Listen on a different port\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config custom.json   # Use custom configuration\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PROMPTLAB_CONFIG   Override default config file path\n\n")
		fmt.Fprintf(os.Stderr, "For all other settings (LLM, storage, execution), edit the config file.\n")
	}

	flag.Parse()

	// Handle version flag
	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	// Handle setup mode
	if *setupFlag {
		runSetup()
		return
	}

	// Load configuration with environment variable support
	configPath := getConfigPath(*configPathFlag)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load configuration: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *dbPathFlag != "" {
		cfg.Storage.Path = expandPath(*dbPathFlag)
	}
	if *templateDirFlag != "" {
		cfg.TemplateDir = expandPath(*templateDirFlag)
	}

	if err := logger.Initialize(cfg.Logging.Debug || *debugFlag, cfg.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "Could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	ctx := context.Background()

	// Template storage: SQLite when enabled, an in-memory library with
	// the starter templates otherwise
	var templateService services.TemplateService
	var store *db.Store
	if cfg.Storage.Enabled {
		st, err := db.Open(ctx, cfg.StoragePath())
		if err != nil {
			logger.Warnf("could not open template store, falling back to in-memory library: %v", err)
		} else {
			store = st
			templateService = services.NewTemplateService(db.NewTemplateStore(st))
		}
	}
	if templateService == nil {
		mem := services.NewMemoryTemplateService()
		mem.SeedStarters()
		templateService = mem
	}
	if store != nil {
		defer store.Close()
	}

	if cfg.TemplateDir != "" {
		n, err := templateService.ImportDirectory(ctx, cfg.TemplateDir)
		if err != nil {
			logger.Warnf("template import failed: %v", err)
		} else {
			logger.Infof("imported %d templates from %s", n, cfg.TemplateDir)
		}
	}

	// Initialize LLM provider
	var provider llm.Provider
	if cfg.LLM.Enabled && cfg.LLM.Model != "" {
		providerName := cfg.LLM.Provider
		if providerName == "" {
			providerName = "ollama"
		}

		arg := cfg.LLM.Endpoint
		if providerName == "bedrock" {
			region := cfg.LLM.Region
			if region == "" {
				region = os.Getenv("AWS_REGION")
			}
			arg = region
		}

		p, err := llm.NewProviderFromConfig(providerName, arg, cfg.LLM.Model, cfg.GetLLMTimeout())
		if err != nil {
			logger.Warnf("could not initialize LLM provider (%s): %v", providerName, err)
		} else {
			if oc, ok := p.(*llm.Client); ok && !oc.IsAvailable() {
				logger.Warnf("ollama endpoint %s is not responding, executions may fail", cfg.LLM.Endpoint)
			}
			provider = p
			if cfg.LLM.MaxRequestsPerSecond > 0 {
				provider = llm.NewRateLimited(provider, cfg.LLM.MaxRequestsPerSecond)
			}
			logger.Infof("LLM provider ready: %s (%s)", provider.Name(), cfg.LLM.Model)
		}
	}
	if provider == nil {
		logger.Warnf("no LLM provider configured, executions will fail per run")
	}

	// Build the handler set for this session
	basicPolicy := services.ExecutionPolicy{
		Mode:           services.ExecutionMode(cfg.Execution.DefaultMode),
		MaxConcurrency: cfg.Execution.MaxConcurrency,
		TimeoutMs:      cfg.Execution.TimeoutMs,
	}
	if err := basicPolicy.Validate(); err != nil {
		logger.Fatalf("invalid execution configuration: %v", err)
	}

	templates, err := templateService.ListTemplates(ctx, "")
	if err != nil {
		logger.Fatalf("could not list templates: %v", err)
	}
	handlers, err := services.BuildHandlers(templates, services.BuiltinHandlerConfigs(provider), templateService, provider, basicPolicy)
	if err != nil {
		logger.Fatalf("could not build handlers: %v", err)
	}
	registry, err := services.NewHandlerRegistry(handlers)
	if err != nil {
		logger.Fatalf("could not build handler registry: %v", err)
	}
	logger.Infof("registered %d handlers (%d templates)", len(handlers), len(templates))

	srv := server.New(cfg, templateService, registry)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatalf("HTTP server crashed: %v", err)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Infof("shutting down")

	// Give the HTTP server 5 seconds to finish current requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable PROMPTLAB_CONFIG
// 3. Default path ~/.config/promptlab/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPath := os.Getenv("PROMPTLAB_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}

// runSetup creates the default configuration file if it does not exist
func runSetup() {
	fmt.Println("promptlab setup")
	fmt.Println("===============")
	fmt.Println()

	defaultConfigPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		fmt.Printf("Configuration file already exists: %s\n", defaultConfigPath)
		return
	}

	fmt.Printf("Create default configuration file at %s? [Y/n]: ", defaultConfigPath)
	var response string
	_, _ = fmt.Scanln(&response)
	if response != "" && strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
		fmt.Println("Aborted.")
		return
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveConfig(defaultConfigPath); err != nil {
		fmt.Printf("Failed to create config file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created configuration file: %s\n", defaultConfigPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("- Edit the config file to point at your Ollama endpoint or Bedrock region")
	fmt.Printf("- Run %s and open http://localhost%s\n", os.Args[0], config.DefaultServerConfig().Addr)
}
