package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
	"github.com/felixgeelhaar/autotag/pkg/application"
	"github.com/felixgeelhaar/autotag/pkg/storage"
)

var taggedCmd = &cobra.Command{
	Use:   "tagged",
	Short: "Manage the persisted list of tagged files",
}

var taggedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tagged files",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := loadTaggedRegistry(cmd)
		if err != nil {
			return MapError(err)
		}
		files := registry.Files()
		if len(files) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tagged files")
			return nil
		}
		for _, f := range files {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var taggedAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add files to the tagged list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := loadTaggedRegistry(cmd)
		if err != nil {
			return MapError(err)
		}
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", arg, err)
			}
			added, err := registry.Add(path)
			if err != nil {
				return MapError(err)
			}
			if added {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", path)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Already tagged: %s\n", path)
			}
		}
		return nil
	},
}

var taggedRemoveCmd = &cobra.Command{
	Use:   "remove <file>...",
	Short: "Remove files from the tagged list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := loadTaggedRegistry(cmd)
		if err != nil {
			return MapError(err)
		}
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", arg, err)
			}
			removed, err := registry.Remove(path)
			if err != nil {
				return MapError(err)
			}
			if removed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Not tagged: %s\n", path)
			}
		}
		return nil
	},
}

var taggedSyncCmd = &cobra.Command{
	Use:   "sync [file]...",
	Short: "Merge files into the stored list and rewrite it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTaggedConfig()
		if err != nil {
			return MapError(err)
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		initial := make([]string, 0, len(args))
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", arg, err)
			}
			initial = append(initial, path)
		}
		registry, err := application.NewTaggedFileRegistry(storage.NewFilesystemRepository(cfg.Tagged.StateFile), cfg.Tagged.ListName, logger, initial...)
		if err != nil {
			return MapError(err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files in %s\n", registry.Name(), len(registry.Files()), cfg.Tagged.StateFile)
		return nil
	},
}

func loadTaggedConfig() (config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if !cfg.Tagged.Enabled {
		return cfg, NewCLIError("tagged file list is disabled", "Set tagged.enabled: true in autotag.yaml", nil)
	}
	return cfg, nil
}

func loadTaggedRegistry(cmd *cobra.Command) (*application.TaggedFileRegistry, config.Config, error) {
	cfg, err := loadTaggedConfig()
	if err != nil {
		return nil, cfg, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, cfg, err
	}
	registry, err := application.NewTaggedFileRegistry(storage.NewFilesystemRepository(cfg.Tagged.StateFile), cfg.Tagged.ListName, logger)
	if err != nil {
		return nil, cfg, err
	}
	return registry, cfg, nil
}

func init() {
	taggedCmd.AddCommand(taggedListCmd)
	taggedCmd.AddCommand(taggedAddCmd)
	taggedCmd.AddCommand(taggedRemoveCmd)
	taggedCmd.AddCommand(taggedSyncCmd)
	RootCmd.AddCommand(taggedCmd)
}
