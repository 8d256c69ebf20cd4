package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajramos/wareply/internal/config"
)

func sessionConfig(profileDir string) config.BrowserConfig {
	cfg := config.DefaultBrowserConfig()
	cfg.ProfileDir = profileDir
	return cfg
}

func TestIsDisconnected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"wrapped canceled", fmt.Errorf("run: %w", context.Canceled), true},
		{"deadline is not a disconnect", context.DeadlineExceeded, false},
		{"websocket close", errors.New("websocket: close 1006 (abnormal closure)"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"target closed", errors.New("target closed"), true},
		{"launch failure", errors.New("chrome failed to start:\nexit status 1"), true},
		{"plain scrape error", errors.New("could not compute box model"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDisconnected(tt.err))
		})
	}
}

func TestPrepareProfileDirCreatesAndClearsLocks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	s := NewSession(sessionConfig(dir), nil)

	// First run creates the directory.
	err := s.prepareProfileDir()
	assert.NoError(t, err)
	info, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())

	// Simulate a crashed run leaving singleton locks behind.
	lock := filepath.Join(dir, "SingletonLock")
	assert.NoError(t, os.WriteFile(lock, []byte("pid"), 0o644))

	err = s.prepareProfileDir()
	assert.NoError(t, err)
	_, statErr := os.Stat(lock)
	assert.True(t, os.IsNotExist(statErr), "stale lock should be removed")
}

func TestPrepareProfileDirRequiresPath(t *testing.T) {
	s := NewSession(sessionConfig(""), nil)
	err := s.prepareProfileDir()
	assert.Error(t, err)
}

func TestCloseBeforeStart(t *testing.T) {
	s := NewSession(sessionConfig(t.TempDir()), nil)
	// Close must be a no-op on a session that never launched.
	s.Close()
	s.Close()
}
