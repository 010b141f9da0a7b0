package testsupport

import (
	"path/filepath"
	"testing"

	"storyboard/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"
	return &cfg
}
