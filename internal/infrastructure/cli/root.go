package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/logging"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/wiring"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "autotag",
	Version: Version,
	Short:   "Write metadata sidecars for new data files",
	Long: `autotag watches a directory for new data files and writes a YAML
metadata sidecar next to each one. The sidecar merges the selected
template with a timestamp and any configured static fields.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		printError(RootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $AUTOTAG_CONFIG or ./autotag.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

func printError(w io.Writer, err error) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		_, _ = fmt.Fprintf(w, "Error: %s\n", cliErr.Error())
		if cliErr.Hint != "" {
			_, _ = fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (config.Config, string, error) {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, path, cfg.Validate()
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
}

// loadAutoTagger builds the pipeline from the resolved configuration.
func loadAutoTagger(cmd *cobra.Command, mutate func(*config.Config)) (*wiring.AutoTagger, config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	if mutate != nil {
		mutate(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, cfg, err
		}
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, cfg, err
	}
	a, err := wiring.NewAutoTagger(cfg, logger)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}
