package validation

import (
	"testing"
	"time"

	"github.com/vnykmshr/tabflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"one", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("test", "workers", tt.value)
			if tt.wantError {
				if !errors.IsConfigurationError(err) {
					t.Errorf("expected ConfigurationError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNonNegativeDuration(t *testing.T) {
	if err := ValidateNonNegativeDuration("test", "ttl", 0); err != nil {
		t.Errorf("zero duration: unexpected error %v", err)
	}
	if err := ValidateNonNegativeDuration("test", "ttl", time.Minute); err != nil {
		t.Errorf("positive duration: unexpected error %v", err)
	}
	if err := ValidateNonNegativeDuration("test", "ttl", -time.Second); !errors.IsConfigurationError(err) {
		t.Errorf("negative duration: expected ConfigurationError, got %v", err)
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("test", "table", struct{}{}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := ValidateNotNil("test", "table", nil); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("test", "path", "data.csv"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := ValidateNotEmpty("test", "path", ""); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestValidateUnique(t *testing.T) {
	tests := []struct {
		name      string
		names     []string
		wantError bool
	}{
		{"empty", nil, false},
		{"distinct", []string{"extract", "clean", "load"}, false},
		{"duplicate", []string{"clean", "dedupe", "clean"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnique("pipeline", "stage", tt.names)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateUnique() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
