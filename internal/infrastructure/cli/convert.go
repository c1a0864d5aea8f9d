package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/converter"
	"github.com/felixgeelhaar/autotag/pkg/application"
)

var (
	convertRemove bool
	convertKeep   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]...",
	Short: "Run the configured converter on tagged files",
	Long: `Run convert.command for each file (default: every tagged file), with
the file path appended to convert.args. With convert.builtin: zstd and no
command, each file is compressed to <file>.zst instead. Converted files are
removed from the tagged list when convert.remove_converted or --remove is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, cfg, err := loadTaggedRegistry(cmd)
		if err != nil {
			return MapError(err)
		}
		conv, err := converter.New(cfg.Convert.Command, cfg.Convert.Args, cfg.Convert.Builtin)
		if err != nil {
			return MapError(err)
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}

		paths := registry.Files()
		if len(args) > 0 {
			paths = make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				paths = append(paths, abs)
			}
		}
		if len(paths) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to convert")
			return nil
		}

		remove := (cfg.Convert.RemoveConverted || convertRemove) && !convertKeep
		svc := application.NewConvertService(conv, registry, cfg.Convert.Timeout, logger,
			application.WithWorkers(cfg.Convert.Workers))

		var failed int
		for _, r := range svc.ConvertAll(cmd.Context(), paths, remove) {
			if r.Err != nil {
				failed++
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", r.Path, r.Err)
				continue
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "OK   %s -> %s\n", r.Path, r.Artifact)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d conversions failed", failed, len(paths))
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().BoolVar(&convertRemove, "remove", false, "remove converted files from the tagged list")
	convertCmd.Flags().BoolVar(&convertKeep, "keep", false, "keep converted files in the tagged list")
	RootCmd.AddCommand(convertCmd)
}
