package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/natter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		existing bool
		wantErr  bool
	}{
		{name: "fresh initialization"},
		{name: "existing config without force", existing: true, wantErr: true},
		{name: "force overwrites existing config", existing: true, force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, ConfigFile)
			if tt.existing {
				require.NoError(t, os.WriteFile(target, []byte("old content"), 0644))
			}

			path, err := Initialize(dir, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "project already initialized")

				content, readErr := os.ReadFile(target)
				require.NoError(t, readErr)
				assert.Equal(t, "old content", string(content), "existing file must be untouched")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, target, path)

			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "U0BOT", cfg.Bot.ID)
			assert.Equal(t, []string{"ping", "help", "greetings", "echo", "attachment"}, cfg.Plugins.Enabled)
			require.Len(t, cfg.Plugins.Replies, 1)
		})
	}
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("x"), 0644))
	err := CheckExisting(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "natter init --force")
}
