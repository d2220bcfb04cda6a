package config_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/mkrupp/housing-portal/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue string `env:"STRING_VALUE" default:"default"`
	IntValue    int    `env:"INT_VALUE" default:"42"`
	BoolValue   bool   `env:"BOOL_VALUE" default:"true"`
	NoEnvTag    string
	Nested      testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

type requiredConfig struct {
	EnvConfig

	Required string `env:"REQUIRED_VALUE"`
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    testConfig
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			prefix:  "",
			envVars: map[string]string{},
			want: testConfig{
				StringValue: "default",
				IntValue:    42,
				BoolValue:   true,
				Nested:      testNestedConfig{NestedString: "nested-default"},
			},
		},
		{
			name:   "reads values from environment",
			prefix: "",
			envVars: map[string]string{
				"STRING_VALUE":  "from-env",
				"INT_VALUE":     "7",
				"BOOL_VALUE":    "false",
				"NESTED_STRING": "nested-env",
			},
			want: testConfig{
				StringValue: "from-env",
				IntValue:    7,
				BoolValue:   false,
				Nested:      testNestedConfig{NestedString: "nested-env"},
			},
		},
		{
			name:   "prefers namespaced variables",
			prefix: "HOUSING_HOUSINGSVC",
			envVars: map[string]string{
				"HOUSING_HOUSINGSVC_STRING_VALUE": "namespaced",
				"STRING_VALUE":                    "global",
			},
			want: testConfig{
				StringValue: "namespaced",
				IntValue:    42,
				BoolValue:   true,
				Nested:      testNestedConfig{NestedString: "nested-default"},
			},
		},
		{
			name:   "falls back through the namespace chain",
			prefix: "HOUSING_HOUSINGSVC",
			envVars: map[string]string{
				"HOUSING_STRING_VALUE": "app-wide",
			},
			want: testConfig{
				StringValue: "app-wide",
				IntValue:    42,
				BoolValue:   true,
				Nested:      testNestedConfig{NestedString: "nested-default"},
			},
		},
		{
			name:   "rejects invalid int",
			prefix: "",
			envVars: map[string]string{
				"INT_VALUE": "not-a-number",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			var cfg testConfig

			err := Parse(context.Background(), &cfg, tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				return
			}

			if cfg.StringValue != tt.want.StringValue ||
				cfg.IntValue != tt.want.IntValue ||
				cfg.BoolValue != tt.want.BoolValue ||
				cfg.Nested != tt.want.Nested {
				t.Errorf("Parse() = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

//nolint:paralleltest
func TestParse_RequiredVariable(t *testing.T) {
	var cfg requiredConfig

	err := Parse(context.Background(), &cfg, "")
	if !errors.Is(err, ErrVarNotSet) {
		t.Errorf("Parse() error = %v, want %v", err, ErrVarNotSet)
	}

	t.Setenv("REQUIRED_VALUE", "present")

	if err := Parse(context.Background(), &cfg, ""); err != nil {
		t.Errorf("Parse() error = %v, want nil", err)
	}

	if cfg.Required != "present" {
		t.Errorf("Required = %q, want %q", cfg.Required, "present")
	}
}

//nolint:paralleltest
func TestParse_InvalidTarget(t *testing.T) {
	var notAStruct int

	if err := Parse(context.Background(), &notAStruct, ""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Parse() error = %v, want %v", err, ErrInvalidConfig)
	}
}
