package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func stringFlag(t *testing.T, flags []cli.Flag, name string) *cli.StringFlag {
	t.Helper()
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	t.Fatalf("string flag %q not found", name)
	return nil
}

func intFlag(t *testing.T, flags []cli.Flag, name string) *cli.IntFlag {
	t.Helper()
	for _, flag := range flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
			return f
		}
	}
	t.Fatalf("int flag %q not found", name)
	return nil
}

func TestCorpusFlags(t *testing.T) {
	flags := corpusFlags()

	t.Run("db is required", func(t *testing.T) {
		f := stringFlag(t, flags, "db")
		assert.True(t, f.Required)
		assert.Contains(t, f.Aliases, "d")
	})

	t.Run("embedding-dim has a default", func(t *testing.T) {
		f := intFlag(t, flags, "embedding-dim")
		assert.Equal(t, 768, f.Value)
	})
}

func TestAIFlags(t *testing.T) {
	flags := aiFlags()

	t.Run("host has local default", func(t *testing.T) {
		f := stringFlag(t, flags, "host")
		assert.Equal(t, "http://localhost:11434/v1", f.Value)
		assert.False(t, f.Required)
	})

	t.Run("models have defaults", func(t *testing.T) {
		assert.Equal(t, "embeddinggemma", stringFlag(t, flags, "embedding-model").Value)
		assert.Equal(t, "qwen2.5:3b", stringFlag(t, flags, "chat-model").Value)
	})
}

func TestSearchCommandValidation(t *testing.T) {
	app := &cli.App{
		Name: "newsdex",
		Commands: []*cli.Command{
			{
				Name:   "search",
				Action: searchCommand,
				Flags:  append(corpusFlags(), aiFlags()...),
			},
		},
	}

	t.Run("missing db flag fails", func(t *testing.T) {
		err := app.Run([]string{"newsdex", "search", "interest", "rates"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})
}

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newApp().Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}
