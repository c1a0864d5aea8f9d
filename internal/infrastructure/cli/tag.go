package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
)

var tagTemplate string

var tagCmd = &cobra.Command{
	Use:   "tag <file>...",
	Short: "Write metadata sidecars for existing files",
	Long: `Tag files that already exist, for example files created before the
watcher started. Each file gets a sidecar named <file>.yaml built from the
selected template.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAutoTagger(cmd, func(cfg *config.Config) {
			if tagTemplate != "" {
				cfg.Templates.Selected = tagTemplate
			}
		})
		if err != nil {
			return MapError(err)
		}

		var failed int
		for _, path := range args {
			sidecar, err := a.TagFile(cmd.Context(), path)
			if err != nil {
				failed++
				printError(cmd.ErrOrStderr(), MapError(err))
				continue
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, sidecar)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be tagged", failed, len(args))
		}
		return nil
	},
}

func init() {
	tagCmd.Flags().StringVarP(&tagTemplate, "template", "t", "", "template to use (overrides templates.selected)")
	RootCmd.AddCommand(tagCmd)
}
