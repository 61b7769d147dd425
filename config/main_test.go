package config

import (
	"os"
	"testing"
)

// TestMain pins GO_ENV to test so Load only ever reads .env.test and never a
// developer's .env.development database settings.
func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "" && env != "test" {
		os.Stderr.WriteString("config tests refuse to run with GO_ENV=" + env + "\n")
		os.Exit(1)
	}
	os.Setenv("GO_ENV", "test")
	os.Exit(m.Run())
}
