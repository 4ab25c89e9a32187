package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredVariables(t *testing.T) {
	// Clear all environment variables
	clearEnv := func() {
		os.Unsetenv("PORT")
		os.Unsetenv("PROVIDER")
		os.Unsetenv("FAL_KEY")
		os.Unsetenv("FAL_MODEL")
		os.Unsetenv("REPLICATE_API_TOKEN")
		os.Unsetenv("REPLICATE_VERSION")
		os.Unsetenv("CACHE_DIR")
		os.Unsetenv("ALLOWED_DURATIONS")
		os.Unsetenv("S3_BUCKET")
		os.Unsetenv("S3_REGION")
		os.Unsetenv("AWS_ACCESS_KEY_ID")
		os.Unsetenv("AWS_SECRET_ACCESS_KEY")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("LOG_LEVEL")
	}

	t.Run("fal provider without FAL_KEY returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("PROVIDER", "fal")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFalKeyRequired)
	})

	t.Run("replicate provider without token returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("PROVIDER", "replicate")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrReplicateTokenRequired)
	})

	t.Run("unknown provider returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("PROVIDER", "huggingface")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderUnknown)
	})

	t.Run("fal provider with key succeeds", func(t *testing.T) {
		clearEnv()
		t.Setenv("PROVIDER", "fal")
		t.Setenv("FAL_KEY", "test-api-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "test-api-key", cfg.FalAPIKey)
		assert.Equal(t, "fal", cfg.Provider)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROVIDER", "fal")
	t.Setenv("FAL_KEY", "test-api-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/beatframe", cfg.CacheDir)
	assert.Equal(t, 2, cfg.MaxConcurrentScenes)
	assert.Equal(t, 10, cfg.PollIntervalSec)
	assert.Equal(t, 480, cfg.MaxWaitSec)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, []float64{4, 6, 8}, cfg.AllowedDurations)
	assert.Equal(t, 3, cfg.MaxReferenceImages)
	assert.Equal(t, "16:9", cfg.AspectRatio)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PROVIDER", "replicate")
	t.Setenv("REPLICATE_API_TOKEN", "custom-token")
	t.Setenv("REPLICATE_VERSION", "abc123")
	t.Setenv("PORT", "3000")
	t.Setenv("CACHE_DIR", "/custom/cache")
	t.Setenv("MAX_CONCURRENT_SCENES", "4")
	t.Setenv("ALLOWED_DURATIONS", "5,10")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/cache", cfg.CacheDir)
	assert.Equal(t, 4, cfg.MaxConcurrentScenes)
	assert.Equal(t, []float64{5, 10}, cfg.AllowedDurations)
	assert.Equal(t, "abc123", cfg.ReplicateVersion)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidIntegerDefaults(t *testing.T) {
	t.Setenv("PROVIDER", "fal")
	t.Setenv("FAL_KEY", "test-api-key")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("MAX_WAIT_SEC", "invalid")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:             8080,
		Provider:         "fal",
		FalAPIKey:        "secret-key",
		FalModel:         "fal-ai/some-model",
		CacheDir:         "/tmp/test",
		AllowedDurations: []float64{4, 6, 8},
		S3Bucket:         "bucket",
		S3Region:         "region",
		LogFormat:        "json",
		LogLevel:         "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "fal-ai/some-model")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid fal config", func(t *testing.T) {
		cfg := &Config{
			Provider:  "fal",
			FalAPIKey: "key",
		}
		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("valid replicate config", func(t *testing.T) {
		cfg := &Config{
			Provider:       "replicate",
			ReplicateToken: "token",
		}
		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("missing fal key", func(t *testing.T) {
		cfg := &Config{Provider: "fal"}
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrFalKeyRequired)
	})

	t.Run("missing replicate token", func(t *testing.T) {
		cfg := &Config{Provider: "replicate"}
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrReplicateTokenRequired)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &Config{Provider: "other"}
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrProviderUnknown)
	})
}
