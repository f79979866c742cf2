package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateLogLevel(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		level     string
		shouldErr bool
	}{
		{"trace", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"", true},
		{"verbose", true},
		{"INFO", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := v.ValidateLogLevel(tt.level)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateRequestLogDir(t *testing.T) {
	v := NewValidator()

	t.Run("empty means disabled", func(t *testing.T) {
		assert.NoError(t, v.ValidateRequestLogDir(""))
	})

	t.Run("nonexistent is created lazily", func(t *testing.T) {
		assert.NoError(t, v.ValidateRequestLogDir(filepath.Join(t.TempDir(), "later")))
	})

	t.Run("existing directory", func(t *testing.T) {
		assert.NoError(t, v.ValidateRequestLogDir(t.TempDir()))
	})

	t.Run("regular file rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
		assert.Error(t, v.ValidateRequestLogDir(path))
	})
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	assert.NoError(t, v.Validate(cfg))

	cfg.Logging.Level = "nope"
	assert.Error(t, v.Validate(cfg))
}
