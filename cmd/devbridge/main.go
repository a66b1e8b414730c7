// Package main provides devbridge, a stdio front end for browser remote
// debugging. It connects to a Chromium or Firefox debugging endpoint,
// captures console and network activity, and answers tool calls read from
// standard input.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/entrhq/devbridge/pkg/config"
	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/executor/cli"
	"github.com/entrhq/devbridge/pkg/launcher"
	"github.com/entrhq/devbridge/pkg/logging"
	"github.com/entrhq/devbridge/pkg/tools/browser"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Host        string
	Port        int
	Dialect     string
	LogLevel    string
	NoLaunch    bool
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("devbridge v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("devbridge failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	pflag.StringVarP(&cliConfig.ConfigFile, "config", "c", "", "Path to configuration file (default ~/.devbridge/config.yaml)")
	pflag.StringVar(&cliConfig.Host, "host", "", "Debugging endpoint host (overrides config)")
	pflag.IntVarP(&cliConfig.Port, "port", "p", 0, "Debugging endpoint port (overrides config)")
	pflag.StringVarP(&cliConfig.Dialect, "dialect", "d", "", "Protocol dialect: chrome or firefox (overrides config)")
	pflag.StringVar(&cliConfig.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	pflag.BoolVar(&cliConfig.NoLaunch, "no-launch", false, "Do not offer the launch_browser and close_browser tools")
	pflag.BoolVarP(&cliConfig.ShowVersion, "version", "v", false, "Show version and exit")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "devbridge - browser remote debugging for agents\n\n")
		fmt.Fprintf(os.Stderr, "Usage: devbridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Attach to a Chrome started with --remote-debugging-port=9222\n")
		fmt.Fprintf(os.Stderr, "  echo '<tool><tool_name>devtools_connect</tool_name></tool>' | devbridge\n\n")
		fmt.Fprintf(os.Stderr, "  # Firefox on a custom port\n")
		fmt.Fprintf(os.Stderr, "  devbridge --dialect firefox --port 6000\n\n")
	}

	pflag.Parse()
	return cliConfig
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	if err := config.Initialize(cliConfig.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if err := applyOverrides(cliConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	levelName := config.GetLogging().GetLevel()
	if cliConfig.LogLevel != "" {
		levelName = cliConfig.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logging.SetDefaultLevel(level)

	logger, err := logging.NewLogger("devbridge")
	if err != nil {
		log.Printf("Warning: failed to open log file, logging to stderr: %v", err)
	}
	defer logger.Close()

	devtoolsConfig := config.GetDevTools()
	session := devtools.New(devtools.Options{
		Logger:         logger,
		Capacity:       devtoolsConfig.GetCapacity(),
		CommandTimeout: devtoolsConfig.GetCommandTimeout(),
	})
	defer session.Disconnect()

	var registry *browser.ToolRegistry
	if cliConfig.NoLaunch {
		registry = browser.NewToolRegistry(session, nil)
	} else {
		l := launcher.New()
		defer func() {
			if err := l.Shutdown(); err != nil {
				logger.Warnf("Failed to shut down launcher: %v", err)
			}
		}()
		registry = browser.NewToolRegistry(session, l)
	}

	host, port, dialect := devtoolsConfig.Endpoint()
	logger.Infof("devbridge v%s started (endpoint %s:%d, dialect %s, log %s)", version, host, port, dialect, logger.LogPath())

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	executor := cli.NewExecutor(registry,
		cli.WithLogger(logger),
		cli.WithStyled(term.IsTerminal(int(os.Stdout.Fd()))),
		cli.WithPrompt(interactive),
	)

	// Reads from stdin block, so a signal must not wait for the next line.
	done := make(chan error, 1)
	go func() {
		done <- executor.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
		logger.Infof("Shutting down")
	}
	return nil
}

// applyOverrides copies endpoint flags into the devtools config section.
// The file on disk is not rewritten.
func applyOverrides(cliConfig *CLIConfig) error {
	overrides := map[string]interface{}{}
	if cliConfig.Host != "" {
		overrides["host"] = cliConfig.Host
	}
	if cliConfig.Port != 0 {
		overrides["port"] = cliConfig.Port
	}
	if cliConfig.Dialect != "" {
		overrides["dialect"] = cliConfig.Dialect
	}
	if len(overrides) == 0 {
		return nil
	}

	section := config.GetDevTools()
	if err := section.SetData(overrides); err != nil {
		return err
	}
	return section.Validate()
}
