package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: WARN, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	log.Info("quiet %d", 1)
	log.Warn("loud %d", 2)

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "[WARN] loud 2")
}

func TestWithTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: DEBUG, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	log.With("reconciler").With("SBMQ").Debug("checked")

	assert.Contains(t, buf.String(), "[DEBUG] [reconciler.SBMQ] checked")
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: INFO, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	code := -1
	log.exit = func(c int) { code = c }
	log.Fatal("boom")

	assert.Equal(t, 1, code)
}

func TestParse(t *testing.T) {
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, INFO, ParseLevel("nope"))
	assert.Equal(t, FULL, ParseMode("FULL"))
	assert.Equal(t, NORMAL, ParseMode(""))
}
