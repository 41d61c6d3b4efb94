package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"qa-harness/internal/client"
	"qa-harness/internal/config"
	"qa-harness/internal/discovery"
	"qa-harness/internal/logger"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
	log *logger.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qa-harness",
	Short: "Black-box API checks and a small user service",
	Long: `qa-harness discovers the shape of an e-commerce API from its published
OpenAPI documentation and runs smoke and regression checks against it.

It also serves, and checks, a small user-management CRUD service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log, err = logger.NewLogger(cfg.Log.Dir, cfg.Log.Debug || verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, discoverCmd, runCmd, generateCmd, waitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds the shared HTTP client from the configured timeouts
func newClient() *client.Client {
	return client.New(
		client.WithTimeouts(
			time.Duration(cfg.Test.Timeout)*time.Second,
			time.Duration(cfg.Test.ProbeTimeout)*time.Second,
		),
		client.WithLogger(log.Logger),
	)
}

// newSession builds a discovery session for the configured target
func newSession(c *client.Client) *discovery.Session {
	return discovery.NewSession(c, discovery.Target{
		Host:     cfg.Target.Host,
		DocsURL:  cfg.Target.DocsURL,
		Email:    cfg.Target.Email,
		Password: cfg.Target.Password,
	}, log.Logger)
}

// optional returns v, or "" when err only says the capability is missing
func optional(ctx context.Context, get func(context.Context) (string, error)) (string, error) {
	v, err := get(ctx)
	if err == nil {
		return v, nil
	}
	if isSkip(err) {
		return "", nil
	}
	return "", err
}
