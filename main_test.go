package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSensitiveHeaders(t *testing.T) {
	filtered := filterSensitiveHeaders(map[string]string{
		"Authorization": "Bearer secret",
		"cookie":        "session=1",
		"Content-Type":  "audio/midi",
	})

	assert.Equal(t, "[REDACTED]", filtered["Authorization"])
	assert.Equal(t, "[REDACTED]", filtered["cookie"])
	assert.Equal(t, "audio/midi", filtered["Content-Type"])
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, "dev", GetVersion())
}
