package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/reqtap/internal/config"
	"github.com/harun/reqtap/internal/logger"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	logDir   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reqtap",
	Short: "Reqtap - request/response audit trail recorder",
	Long: `Reqtap records outbound request/response cycles as per-attempt audit
files and provides tools to inspect them: list conversations and attempts,
show recorded exchanges, follow live response streams, and verify recorded
files against the event schemas.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logger.New(logger.Config{
			Level:   logLevel,
			Console: true,
			Pretty:  true,
		})
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.reqtap/reqtap.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "dir", "", "request log base directory (overrides config)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// resolveLogDir returns the audit trail base directory from the --dir flag or
// the loaded, validated configuration.
func resolveLogDir() (string, error) {
	validator := config.NewValidator()

	if logDir != "" {
		if err := validator.ValidateRequestLogDir(logDir); err != nil {
			return "", err
		}
		return logDir, nil
	}

	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return "", err
	}
	if err := validator.Validate(cfg); err != nil {
		return "", err
	}
	if cfg.RequestLog.Dir == "" {
		return "", fmt.Errorf("request logging is not configured in %s (set request_log.dir or REQTAP_REQUEST_LOG_DIR)", loader.GetConfigPath())
	}
	return cfg.RequestLog.Dir, nil
}
