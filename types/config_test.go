package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	return AppConfig{
		Project: ProjectConfig{RootDir: ".", DataDir: ".framer"},
		Data:    DataConfig{File: "framer.json", Format: "json"},
		Backend: BackendConfig{BaseURL: "http://localhost:8000", RequestTimeoutSeconds: 60},
	}
}

func TestAppConfig_Valid(t *testing.T) {
	require.NoError(t, validator.New().Struct(validConfig()))
}

func TestAppConfig_RejectsBadFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Data.Format = "xml"
	assert.Error(t, validator.New().Struct(cfg))
}

func TestAppConfig_RejectsBadBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = "not a url"
	assert.Error(t, validator.New().Struct(cfg))
}

func TestAppConfig_TimeoutBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.RequestTimeoutSeconds = 2
	assert.Error(t, validator.New().Struct(cfg))

	cfg.Backend.RequestTimeoutSeconds = 0 // omitted means the client default
	assert.NoError(t, validator.New().Struct(cfg))
}
