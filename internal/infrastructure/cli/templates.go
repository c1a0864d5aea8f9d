package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect metadata templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates; the selected one is marked with *",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAutoTagger(cmd, withoutTaggedList)
		if err != nil {
			return MapError(err)
		}

		registry := a.Templates()
		templates := registry.Templates()
		out := cmd.OutOrStdout()
		if len(templates) == 0 {
			_, _ = fmt.Fprintf(out, "No templates in %s\n", registry.Directory())
			return nil
		}
		selected, _ := registry.Selected()
		for _, path := range templates {
			marker := " "
			if path == selected {
				marker = "*"
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", marker, path)
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a template's fields (default: the selected template)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAutoTagger(cmd, withoutTaggedList)
		if err != nil {
			return MapError(err)
		}

		registry := a.Templates()
		if len(args) > 0 {
			if err := registry.Select(args[0]); err != nil {
				return MapError(err)
			}
		}
		md, err := registry.Metadata(cmd.Context())
		if err != nil {
			return MapError(err)
		}

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(md)); err != nil {
			return fmt.Errorf("failed to encode template: %w", err)
		}
		_ = enc.Close()
		_, _ = cmd.OutOrStdout().Write(buf.Bytes())
		return nil
	},
}

// withoutTaggedList keeps read-only commands from creating the state file.
func withoutTaggedList(cfg *config.Config) {
	cfg.Tagged.Enabled = false
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	RootCmd.AddCommand(templatesCmd)
}
