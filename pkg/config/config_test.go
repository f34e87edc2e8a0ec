package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEAD_TOKEN_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8888/", cfg.FormBackendURL)
	assert.Equal(t, 2*time.Second, cfg.TransitionDelay)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, uint(3), cfg.SubmitMaxAttempts)
	assert.Equal(t, 10, cfg.MaxFilesPerCategory)
	assert.Equal(t, int64(256<<20), cfg.UploadMemoryLimit)
	assert.Empty(t, cfg.TrustedProxies)
	assert.False(t, cfg.RequireSignagePhotos)
	assert.Equal(t, "AW-17503097114/S1P6CPCSx40bEJqikJpB", cfg.ConversionSendTo)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LEAD_TOKEN_SECRET", testSecret)
	t.Setenv("FORM_BACKEND_URL", "https://forms.example.com/")
	t.Setenv("TRANSITION_DELAY", "500ms")
	t.Setenv("REQUIRE_SIGNAGE_PHOTOS", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://forms.example.com/", cfg.FormBackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.TransitionDelay)
	assert.True(t, cfg.RequireSignagePhotos)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoadConfigParseError(t *testing.T) {
	t.Setenv("LEAD_TOKEN_SECRET", testSecret)
	t.Setenv("SUBMIT_TIMEOUT", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("LEAD_TOKEN_SECRET", "short")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEAD_TOKEN_SECRET")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{LeadTokenSecret: testSecret}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORM_BACKEND_URL")
	assert.Contains(t, err.Error(), "MAX_UPLOAD_SIZE")
	assert.Contains(t, err.Error(), "SUBMIT_TIMEOUT")
	assert.Contains(t, err.Error(), "SUBMIT_MAX_ATTEMPTS")
}

func TestValidateUploadMemoryLimit(t *testing.T) {
	t.Setenv("LEAD_TOKEN_SECRET", testSecret)
	t.Setenv("UPLOAD_MEMORY_LIMIT", "1024")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_MEMORY_LIMIT")
}
