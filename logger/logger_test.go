package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTo(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(&buf, "pricehound", "warn")

	log.Info("hidden")
	log.Warn("source blocked")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "pricehound")
	assert.Contains(t, out, "source blocked")
}

func TestNewTo_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(&buf, "pricehound", "loud")

	log.Debug("hidden")
	log.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}
