package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dyluth/natter/internal/config"
	"github.com/dyluth/natter/internal/dispatch"
	"github.com/dyluth/natter/internal/plugins"
	"github.com/dyluth/natter/internal/printer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the patterns the configured plugins register",
	Long: `Register the configured plugins into a scratch registry and list every
pattern, in the order it is matched. No Redis connection is needed.`,
	RunE: runPlugins,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(cmd *cobra.Command, args []string) error {
	pluginsCfg, err := loadPluginsConfig(cmd)
	if err != nil {
		return err
	}

	units, err := plugins.Select(pluginsCfg)
	if err != nil {
		return printer.Error("invalid plugin selection", err.Error(), nil)
	}

	registry := dispatch.NewRegistry()
	result := plugins.Load(registry, units)
	for name, loadErr := range result.Failed {
		printer.Warning("plugin %s failed to load: %v\n", name, loadErr)
	}

	FormatPatterns(os.Stdout, registry)
	return nil
}

// loadPluginsConfig only needs the plugins section, so a missing file or an
// incomplete bot section is not an error here.
func loadPluginsConfig(cmd *cobra.Command) (config.PluginsConfig, error) {
	cfg, err := config.Load(configPath)
	switch {
	case err == nil:
		return cfg.Plugins, nil
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		return config.PluginsConfig{}, nil
	}

	data, readErr := os.ReadFile(configPath)
	if readErr != nil {
		return config.PluginsConfig{}, printer.ErrorWithContext(
			"failed to load configuration", readErr.Error(), map[string]string{"Config": configPath}, nil)
	}

	var partial config.Config
	if yamlErr := yaml.Unmarshal(data, &partial); yamlErr != nil {
		return config.PluginsConfig{}, printer.ErrorWithContext(
			"failed to load configuration", yamlErr.Error(), map[string]string{"Config": configPath}, nil)
	}
	for i := range partial.Plugins.Replies {
		if err := partial.Plugins.Replies[i].Validate(i); err != nil {
			return config.PluginsConfig{}, printer.ErrorWithContext(
				"invalid configuration", err.Error(), map[string]string{"Config": configPath}, nil)
		}
	}
	return partial.Plugins, nil
}

// FormatPatterns writes every registered pattern as a table, respond_to first.
func FormatPatterns(w io.Writer, registry *dispatch.Registry) {
	fmt.Fprintf(w, "%-11s %-24s %-16s %s\n", "CATEGORY", "PATTERN", "NAME", "DESCRIPTION")
	fmt.Fprintf(w, "%-11s %-24s %-16s %s\n", "-----------", "------------------------", "----------------", "------------------------------")

	total := 0
	for _, category := range []dispatch.Category{dispatch.RespondTo, dispatch.ListenTo} {
		for _, e := range registry.Enumerate(category) {
			fmt.Fprintf(w, "%-11s %-24s %-16s %s\n", category, e.Pattern, e.Name, e.Description)
			total++
		}
	}

	countMsg := "pattern"
	if total != 1 {
		countMsg = "patterns"
	}
	fmt.Fprintf(w, "\n%d %s registered\n", total, countMsg)
}
