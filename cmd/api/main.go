package main

import (
	"os"

	"github.com/cpp-cyber/ldapauth/internal/config"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build-time variables (set via -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// init the environment
func init() {
	_ = godotenv.Load()
}

var rootCmd = &cobra.Command{
	Use:   "ldapauth",
	Short: "LDAP authentication bridge",
	Long: `ldapauth authenticates logins against one or more LDAP directories,
keeps a local user record in step with the directory and issues a session.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.SetVersionTemplate("ldapauth {{.Version}} (" + GitCommit + ")\n")
	rootCmd.AddCommand(serveCmd, checkCmd, loginCmd)
}

// loadConfig reads and validates the environment, then applies the log settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
