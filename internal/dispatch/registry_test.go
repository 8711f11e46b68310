package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*Message, []string) error { return nil }

func TestRegister(t *testing.T) {
	t.Run("rejects unknown category", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register("shout_at", "^hi$", 0, noop)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid category")
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(RespondTo, "^hi$", 0, nil)
		assert.Error(t, err)
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(RespondTo, "(unclosed", 0, noop)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to compile pattern")
	})

	t.Run("derives handler name from function", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "^hi$", 0, noop))
		entries := r.Enumerate(RespondTo)
		require.Len(t, entries, 1)
		assert.Equal(t, "noop", entries[0].Name)
	})

	t.Run("same pattern replaces handler in place", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "^a", 0, noop, WithName("first")))
		require.NoError(t, r.Register(RespondTo, "^b", 0, noop, WithName("second")))
		require.NoError(t, r.Register(RespondTo, "^a", 0, noop, WithName("replacement")))

		entries := r.Enumerate(RespondTo)
		require.Len(t, entries, 2)
		assert.Equal(t, "replacement", entries[0].Name)
		assert.Equal(t, "second", entries[1].Name)
	})

	t.Run("same pattern with different flags is a distinct entry", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "^a", 0, noop))
		require.NoError(t, r.Register(RespondTo, "^a", IgnoreCase, noop))
		assert.Equal(t, 2, r.Len(RespondTo))
	})

	t.Run("sealed registry rejects registration", func(t *testing.T) {
		r := NewRegistry()
		r.Seal()
		assert.True(t, r.Sealed())
		err := r.Register(RespondTo, "^hi$", 0, noop)
		assert.ErrorIs(t, err, ErrRegistrySealed)
		assert.Equal(t, 0, r.Len(RespondTo))
	})
}

func TestMatch(t *testing.T) {
	t.Run("anchored pattern yields handler with no groups", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "^hi$", 0, noop, WithName("H")))

		matches := r.Match(RespondTo, "hi")
		require.Len(t, matches, 1)
		require.NotNil(t, matches[0].Handler)
		assert.Equal(t, "H", matches[0].Handler.Name)
		assert.Empty(t, matches[0].Args)
	})

	t.Run("no match yields one sentinel", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "^hi$", 0, noop))

		matches := r.Match(RespondTo, "bye")
		require.Len(t, matches, 1)
		assert.Nil(t, matches[0].Handler)
		assert.Nil(t, matches[0].Args)
	})

	t.Run("empty category yields sentinel", func(t *testing.T) {
		r := NewRegistry()
		matches := r.Match(ListenTo, "anything")
		assert.Equal(t, []Match{{}}, matches)
	})

	t.Run("search is unanchored", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(ListenTo, "deploy", 0, noop))

		matches := r.Match(ListenTo, "please deploy now")
		require.Len(t, matches, 1)
		assert.NotNil(t, matches[0].Handler)
	})

	t.Run("capture groups become args", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, `^add (\d+) (\d+)( please)?$`, 0, noop))

		matches := r.Match(RespondTo, "add 2 3")
		require.Len(t, matches, 1)
		assert.Equal(t, []string{"2", "3", ""}, matches[0].Args)
	})

	t.Run("all matching patterns fan out in registration order", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(ListenTo, "hel", 0, noop, WithName("P1")))
		require.NoError(t, r.Register(ListenTo, "nomatch", 0, noop, WithName("P0")))
		require.NoError(t, r.Register(ListenTo, "lo$", 0, noop, WithName("P2")))

		matches := r.Match(ListenTo, "hello")
		require.Len(t, matches, 2)
		assert.Equal(t, "P1", matches[0].Handler.Name)
		assert.Equal(t, "P2", matches[1].Handler.Name)
	})

	t.Run("categories are independent", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "hi", 0, noop))

		assert.Nil(t, r.Match(ListenTo, "hi")[0].Handler)
		assert.NotNil(t, r.Match(RespondTo, "hi")[0].Handler)
	})

	t.Run("ignorecase flag", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(RespondTo, "hello$", IgnoreCase, noop))

		assert.NotNil(t, r.Match(RespondTo, "HeLLo")[0].Handler)
		assert.Nil(t, r.Match(RespondTo, "hello!")[0].Handler)
	})
}

func TestEnumerate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(RespondTo, "^ping$", IgnoreCase, noop, WithName("ping"), WithDescription("answers pong")))
	require.NoError(t, r.Register(RespondTo, "^help$", 0, noop, WithName("help")))

	entries := r.Enumerate(RespondTo)
	assert.Equal(t, []HelpEntry{
		{Pattern: "^ping$", Name: "ping", Description: "answers pong"},
		{Pattern: "^help$", Name: "help", Description: ""},
	}, entries)

	assert.Empty(t, r.Enumerate(ListenTo))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"ignorecase", "DotAll"})
	require.NoError(t, err)
	assert.Equal(t, IgnoreCase|DotAll, f)
	assert.Equal(t, "(?is)", f.prefix())

	f, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, Flags(0), f)
	assert.Equal(t, "", f.prefix())

	_, err = ParseFlags([]string{"verbose"})
	assert.Error(t, err)
}
