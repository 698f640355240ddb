package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"umlforge/local-app/internal/app"
	"umlforge/local-app/internal/cli"
	"umlforge/local-app/internal/config"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/storage"
)

// bootstrap loads the configuration, builds the application and runs the CLI on stdin
// or on the script files named in args.
func bootstrap(args []string) error {
	flags := flag.NewFlagSet("umlforge", flag.ContinueOnError)
	configPath := flags.String("config", config.DefaultPath, "configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Set up channel to receive interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cfg, err := config.ConfigLoad(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := log.NewLogger(cfg, level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	ctx := context.Background()
	logger.Info(ctx, "Application starting", log.Fields{"config": *configPath})

	store, err := storage.NewStorage(cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to initialize storage", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(ctx, "Failed to close storage", log.Fields{"error": err})
		}
	}()

	application, err := app.New(cfg, logger, store)
	if err != nil {
		logger.Error(ctx, "Failed to initialize application", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize application: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error(ctx, "Failed to close application", log.Fields{"error": err})
		}
	}()
	application.Start(ctx)

	if err := application.WatchConfig(*configPath); err != nil {
		logger.Warn(ctx, "Configuration changes will not be applied", log.Fields{"error": err})
	}

	if scripts := flags.Args(); len(scripts) > 0 {
		return runScripts(ctx, application, logger, scripts)
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	var reader cli.LineReader
	if interactive {
		rl, err := cli.NewReadline(cfg.HistoryFile, application.CommandSpecs())
		if err != nil {
			return err
		}
		reader = rl
	} else {
		reader = cli.NewScriptReader(os.Stdin)
	}

	cliInstance, err := cli.NewCLI(application, reader, os.Stdout, logger, interactive)
	if err != nil {
		logger.Error(ctx, "Failed to initialize CLI", log.Fields{"error": err})
		return fmt.Errorf("failed to initialize CLI: %v", err)
	}
	defer cliInstance.Stop()

	// Set up graceful shutdown
	go func() {
		<-sigChan
		logger.Info(ctx, "Received interrupt signal. Shutting down...", nil)
		fmt.Println("\nReceived interrupt signal. Shutting down...")
		cliInstance.Stop()
	}()

	if interactive {
		fmt.Println("Welcome to UMLForge! Type 'help' for a list of commands.")
	}
	runErr := cliInstance.Run(ctx)
	if runErr != nil {
		logger.Error(ctx, "CLI error", log.Fields{"error": runErr})
	}

	logger.Info(ctx, "Application shutting down", nil)
	if interactive {
		fmt.Println("Goodbye!")
	}
	return runErr
}

func runScripts(ctx context.Context, application *app.Context, logger *log.Logger, paths []string) error {
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script %s: %w", path, err)
		}
		cliInstance, err := cli.NewCLI(application, cli.NewScriptReader(file), os.Stdout, logger, false)
		if err != nil {
			file.Close()
			return err
		}
		runErr := cliInstance.Run(ctx)
		file.Close()
		if runErr != nil {
			logger.Error(ctx, "Script failed", log.Fields{"script": path, "error": runErr})
			return fmt.Errorf("script %s: %w", path, runErr)
		}
		select {
		case <-application.Quit():
			return nil
		default:
		}
	}
	return nil
}
