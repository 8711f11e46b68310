package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/natter/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFile is the name of the file Initialize creates.
const ConfigFile = "natter.yml"

// Initialize writes a starter natter.yml into dir and checks that it loads.
// Without force an existing natter.yml is left alone and an error is returned.
func Initialize(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFile)

	if err := CheckExisting(dir); err != nil {
		if !force {
			return "", err
		}
		fmt.Printf("⚠️  Overwriting existing %s...\n", ConfigFile)
	}

	content, err := templatesFS.ReadFile("templates/natter.yml.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read natter.yml template: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s does not load: %w", ConfigFile, err)
	}

	return path, nil
}

// CheckExisting returns an error if dir already has a natter.yml.
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'natter init --force' to overwrite it", ConfigFile)
	}
	return nil
}

// PrintSuccess prints the success message with next steps
func PrintSuccess(path string) {
	fmt.Println("\n✅ Successfully initialized natter!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set bot.id to the bot's user ID")
	fmt.Println("  2. Point transport.redis_url at your Redis")
	fmt.Println("  3. Run 'natter run'")
}
