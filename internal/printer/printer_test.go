package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects Stdout and Stderr to buffers for the duration of the test
func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	stdout, stderr = new(bytes.Buffer), new(bytes.Buffer)
	origOut, origErr, origNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = origOut, origErr, origNoColor
	})
	return stdout, stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", stderr.String())
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("context is listed in key order", func(t *testing.T) {
		_, stderr := capture(t)
		context := map[string]string{
			"Workspace": "acme",
			"Config":    "natter.yml",
		}
		err := ErrorWithContext("Test Error", "Explanation", context, nil)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "  Config: natter.yml\n  Workspace: acme\n")
	})

	t.Run("empty explanation is skipped", func(t *testing.T) {
		_, stderr := capture(t)
		ErrorWithContext("Test Error", "", map[string]string{"Key": "Value"}, nil)
		assert.Equal(t, "Test Error\n\n\n  Key: Value\n", stderr.String())
	})
}

func TestSuccessAndWarning(t *testing.T) {
	stdout, stderr := capture(t)

	Success("Published to %s\n", "D1")
	Success("✓ already marked\n")
	Warning("plugin %s failed\n", "echo")
	Println("plain")

	assert.Equal(t, "✓ Published to D1\n✓ already marked\nplain\n", stdout.String())
	assert.Equal(t, "⚠️  plugin echo failed\n", stderr.String())
}
