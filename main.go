package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/config"
	"github.com/kidandcat/homepagetests/pkg/homepage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.Default()
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "homepagetests",
	Short:        "UI regression checks for the Selenium WebDriver Java demo site",
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file path")
	flags.String("fixture", cfg.Fixture, "Fixture CSV file")
	flags.String("base-url", cfg.BaseURL, "Home page under test")
	flags.String("engine", cfg.Engine, "Browser engine (chromedp or rod)")
	flags.Bool("headless", cfg.Headless, "Run a local browser without a window")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(checkCmd, scrapeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings applies the config file and then every flag that was set
// explicitly, and builds the logger.
func loadSettings(cmd *cobra.Command) error {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	var fileErr error
	if configPath != "" {
		fileConfig, err := config.LoadConfig(configPath)
		if err != nil {
			fileErr = fmt.Errorf("load config file %s: %w", configPath, err)
		} else {
			cfg.Apply(fileConfig)
		}
	}

	if flags.Changed("fixture") {
		cfg.Fixture, _ = flags.GetString("fixture")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("engine") {
		cfg.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if fileErr != nil {
		logger.Warn().Err(fileErr).Msg("ignoring config file")
	} else if configPath != "" {
		logger.Debug().Str("path", configPath).Msg("loaded config file")
	}
	return nil
}

func newProvider() (*browser.Provider, error) {
	engine, err := browser.ParseEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	provider, err := browser.NewProvider(config.RemoteEndpoint(), browser.ProviderOptions{
		Engine:            engine,
		Logger:            logger,
		ExecPath:          cfg.ChromePath,
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout,
	})
	if err != nil {
		var configErr *browser.ConfigError
		if errors.As(err, &configErr) {
			return nil, fmt.Errorf("check %s: %w", config.EndpointEnv, err)
		}
		return nil, err
	}
	return provider, nil
}

func timeouts() homepage.Timeouts {
	return homepage.Timeouts{
		LinkedTitle: cfg.LinkedTitleTimeout,
		Scrape:      cfg.ScrapeTimeout,
		Navigation:  cfg.NavigationTimeout,
	}
}

// signalContext is cancelled on the first interrupt. A second interrupt
// terminates the process.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigChan:
			signal.Reset()
			logger.Info().Str("signal", s.String()).Msg("shutting down, closing browser sessions")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
