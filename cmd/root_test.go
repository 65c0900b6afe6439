package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RegistersVerbs(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"show-config", "init", "migrate", "run", "analyze", "check", "cache"} {
		assert.True(t, names[want], "expected verb %q to be registered", want)
	}
}

func TestParseTransformFlags(t *testing.T) {
	got := parseTransformFlags([]string{"email=hash", "ssn=redact"})
	assert.Equal(t, map[string]string{"email": "hash", "ssn": "redact"}, got)

	assert.Nil(t, parseTransformFlags(nil))
	assert.Empty(t, parseTransformFlags([]string{"malformed"}))
}
