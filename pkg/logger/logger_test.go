package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(WARN)
	log.SetOutput(&buf)

	log.Debug("debug line")
	log.Info("info line")
	log.Warn("warn line")
	log.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestPrintfFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(DEBUG)
	log.SetOutput(&buf)

	log.Info("user %s has %d minutes", "abc", 40)
	assert.Contains(t, buf.String(), "user abc has 40 minutes")
}

func TestKeyValueFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(DEBUG)
	log.SetOutput(&buf)

	log.Infow("Payment reconciled", "minutes", 40, "kind", "subscription")

	out := buf.String()
	assert.Contains(t, out, "Payment reconciled")
	assert.Contains(t, out, "minutes=40")
	assert.Contains(t, out, "kind=subscription")
}
