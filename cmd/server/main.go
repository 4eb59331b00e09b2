// Package main runs the collaboration relay: room presence, broadcast relay
// and call signaling over WebSockets.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thorx18/project-management-system/internal/app"
	"github.com/thorx18/project-management-system/internal/auth"
	"github.com/thorx18/project-management-system/internal/config"
	"github.com/thorx18/project-management-system/internal/log"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	listenAddr string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "collab",
	Short: "Real-time collaboration relay for the project management system",
	Long: `collab keeps per-project presence, relays chat, typing and task events
to everyone in a project room and brokers call signaling between members.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server (default)",
	RunE:  runServe,
}

var (
	tokenName string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a development JWT signed with the configured secret",
	Long: `Mint an HS256 token for local testing.

Examples:
  collab token 42 --name Ann
  wscat -c "ws://localhost:5000/ws?token=$(collab token 42)"`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "HTTP listen address override")

	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (config.Config, string, error) {
	bootstrap := log.New("info", "console")
	cfg, path, err := config.Load(bootstrap, configPath)
	if err != nil {
		return cfg, path, err
	}
	cfg.UpdateFrom(config.Config{Addr: listenAddr, LogLevel: logLevel})
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("config", path).
		Str("addr", cfg.Addr).
		Dur("ring_timeout", cfg.RingTimeout).
		Bool("jwt", cfg.JWTSecret != "").
		Str("version", version).
		Msg("starting collab server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init failed")
		return err
	}
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is not configured")
	}

	token, err := auth.GenerateToken(auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, args[0], tokenName, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
