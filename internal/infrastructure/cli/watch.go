package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/watch"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/wiring"
)

var (
	watchDir      string
	watchSuffix   string
	watchTemplate string
	watchReload   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and tag new data files",
	Long: `Watch a directory (non-recursive) for new files with the configured
suffix and write a metadata sidecar for each one.

SIGHUP reloads the config file. With --reload the config file is also
reloaded whenever it is saved. Files created while the watcher restarts
after a change are not tagged; use 'autotag tag' for those.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			watchDir = args[0]
		}

		a, cfg, err := loadAutoTagger(cmd, applyWatchFlags)
		if err != nil {
			return MapError(err)
		}
		if err := a.Start(); err != nil {
			return MapError(fmt.Errorf("start watching: %w", err))
		}
		defer a.Stop()

		reloads := make(chan struct{}, 1)
		if watchReload || cfg.Watch.ReloadOnChange {
			fw := watch.NewFileChangeWatcher(config.ResolvePath(configPath), 0, func(string) {
				select {
				case reloads <- struct{}{}:
				default:
				}
			}, nil)
			if err := fw.Start(); err != nil {
				return MapError(fmt.Errorf("watch config file: %w", err))
			}
			defer func() { _ = fw.Close() }()
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Watching %s for *%s files (Ctrl+C to stop)\n", cfg.Watch.Directory, cfg.Watch.Suffix)
		if selected, err := a.Templates().Selected(); err == nil {
			_, _ = fmt.Fprintf(out, "Template: %s\n", selected)
		}

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(signals)

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case sig := <-signals:
				if sig != syscall.SIGHUP {
					_, _ = fmt.Fprintln(out, "Stopping")
					return nil
				}
				reload(cmd, a)
			case <-reloads:
				reload(cmd, a)
			}
		}
	},
}

func applyWatchFlags(cfg *config.Config) {
	if watchDir != "" {
		cfg.Watch.Directory = watchDir
	}
	if watchSuffix != "" {
		cfg.Watch.Suffix = watchSuffix
	}
	if watchTemplate != "" {
		cfg.Templates.Selected = watchTemplate
	}
}

func reload(cmd *cobra.Command, a *wiring.AutoTagger) {
	cfg, _, err := loadConfig()
	if err == nil {
		applyWatchFlags(&cfg)
		err = a.Reconfigure(cfg)
	}
	if err != nil {
		printError(cmd.ErrOrStderr(), MapError(fmt.Errorf("reload config: %w", err)))
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reloaded configuration: watching %s for *%s files\n", cfg.Watch.Directory, cfg.Watch.Suffix)
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (overrides watch.directory)")
	watchCmd.Flags().StringVarP(&watchSuffix, "suffix", "s", "", "data file suffix such as .csv (overrides watch.suffix)")
	watchCmd.Flags().StringVarP(&watchTemplate, "template", "t", "", "template to select (overrides templates.selected)")
	watchCmd.Flags().BoolVar(&watchReload, "reload", false, "reload the config file when it changes")
	RootCmd.AddCommand(watchCmd)
}
