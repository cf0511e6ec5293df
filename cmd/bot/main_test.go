package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", configPath())
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/barrybot/config.yaml")
	assert.Equal(t, "/etc/barrybot/config.yaml", configPath())
}
