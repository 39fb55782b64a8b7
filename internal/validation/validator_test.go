package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/screendata/mihcsme/internal/errors"
	"github.com/screendata/mihcsme/internal/validation"
)

type testSettings struct {
	Host      string `json:"host" validate:"required"`
	Port      int    `json:"port" validate:"gte=1,lte=65535"`
	Namespace string `json:"namespace" validate:"required,max=64"`
	LogLevel  string `json:"log_level" validate:"oneof=debug info warn error"`
}

func validSettings() testSettings {
	return testSettings{
		Host:      "omero.example.org",
		Port:      4064,
		Namespace: "MIHCSME",
		LogLevel:  "info",
	}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(validSettings()))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name     string
		mutate   func(*testSettings)
		wantKey  string
		wantText string
	}{
		{
			name:     "missing host",
			mutate:   func(s *testSettings) { s.Host = "" },
			wantKey:  "host",
			wantText: "is required",
		},
		{
			name:     "port out of range",
			mutate:   func(s *testSettings) { s.Port = 70000 },
			wantKey:  "port",
			wantText: "must be less than or equal to 65535",
		},
		{
			name:     "namespace too long",
			mutate:   func(s *testSettings) { s.Namespace = string(make([]byte, 65)) },
			wantKey:  "namespace",
			wantText: "must not exceed 64",
		},
		{
			name:     "unknown log level",
			mutate:   func(s *testSettings) { s.LogLevel = "verbose" },
			wantKey:  "log_level",
			wantText: "must be one of: debug info warn error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)

			err := v.Validate(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantText, details[tt.wantKey])
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	s := validSettings()
	s.Host = ""

	err := v.Validate(s)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details := domainErr.Details.(map[string]string)
	assert.Contains(t, details, "host")
	assert.NotContains(t, details, "Host")
}
