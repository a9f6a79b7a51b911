package config

import (
	"testing"
	"time"
)

func TestLoad_DebugFlag(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		debug string
		want  bool
	}{
		{"dev defaults to debug", "dev", "", true},
		{"prod defaults to quiet", "prod", "", false},
		{"explicit override wins in prod", "prod", "true", true},
		{"explicit override wins in dev", "dev", "false", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tc.env)
			t.Setenv("DEBUG", tc.debug)

			if got := Load().Debug; got != tc.want {
				t.Errorf("Debug = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLoad_TablePrefix(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     string
	}{
		{"dev", "", "dev_"},
		{"test", "", "test_"},
		{"prod", "", "prod_"},
		{"staging", "", "dev_"},
		{"prod", "custom_", "custom_"},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.override, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tc.env)
			t.Setenv("TABLE_PREFIX", tc.override)

			if got := Load().TablePrefix; got != tc.want {
				t.Errorf("TablePrefix = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoad_SessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	if got := Load().SessionTTL; got != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", got)
	}

	t.Setenv("SESSION_TTL", "not-a-duration")
	if got := Load().SessionTTL; got != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want the 12h default on a bad value", got)
	}
}
