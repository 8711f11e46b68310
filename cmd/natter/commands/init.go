package commands

import (
	"github.com/dyluth/natter/internal/printer"
	"github.com/dyluth/natter/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter natter.yml",
	Long: `Create a starter natter.yml with every built-in plugin enabled and one
static reply.

Use --force to overwrite an existing natter.yml.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing natter.yml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to create natter.yml in")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(initDir, forceInit)
	if err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	scaffold.PrintSuccess(path)
	return nil
}
