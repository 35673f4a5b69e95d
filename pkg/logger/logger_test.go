package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	t.Run("should write messages at or above the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("warn", "text", &buf)

		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")
		log.Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("should format printf-style arguments", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("info", "text", &buf)

		log.Info("stream %s finished after %d events", "abc", 7)

		assert.Contains(t, buf.String(), "stream abc finished after 7 events")
	})

	t.Run("should emit json records when configured", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("info", "json", &buf)

		log.Info("hello")

		line := strings.TrimSpace(buf.String())
		assert.True(t, strings.HasPrefix(line, "{"))
		assert.Contains(t, line, `"msg":"hello"`)
	})

	t.Run("should tag records with component name", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("info", "json", &buf).WithComponent("decoder")

		log.Info("parsed record")

		assert.Contains(t, buf.String(), `"component":"decoder"`)
	})

	t.Run("should default to info for unknown levels", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("bogus", "text", &buf)

		log.Debug("hidden")
		log.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}
