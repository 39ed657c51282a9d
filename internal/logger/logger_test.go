package logger

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestComponentPrefixAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})

	SetLevel("warn")
	log := Named("cache")
	log.Infof("hidden %d", 1)
	log.Warnf("stale %s", "AAPL")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[cache] stale AAPL")
}

func TestSetFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	t.Cleanup(func() {
		SetFormat("text")
		SetOutput(os.Stdout)
	})

	Named("http").Infof("listening on %s", ":9992")
	InfoBlock("a\n\nb")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"msg":"[http] listening on :9992"`)
}
