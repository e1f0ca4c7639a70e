package warehouse

import (
	"testing"

	"github.com/lakeview-data/marketplace-api/pkg/config"
)

func TestResolveStrategyPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.WarehouseConfig
		expected string
	}{
		{
			name: "client credentials win over everything",
			cfg: config.WarehouseConfig{
				ClientID:     "id",
				ClientSecret: "secret",
				AccessToken:  "token",
				CLIProfile:   "prod",
			},
			expected: "oauth_client_credentials",
		},
		{
			name: "access token wins over profile",
			cfg: config.WarehouseConfig{
				AccessToken: "token",
				CLIProfile:  "prod",
			},
			expected: "access_token",
		},
		{
			name:     "profile is the fallback",
			cfg:      config.WarehouseConfig{CLIProfile: "prod"},
			expected: "cli_profile",
		},
		{
			name:     "empty config still resolves to profile",
			cfg:      config.WarehouseConfig{},
			expected: "cli_profile",
		},
		{
			name: "client id alone does not select oauth",
			cfg: config.WarehouseConfig{
				ClientID:    "id",
				AccessToken: "token",
			},
			expected: "access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := ResolveStrategy(tt.cfg)
			if got := strategy.Method(); got != tt.expected {
				t.Errorf("ResolveStrategy().Method() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolveStrategyDefaultProfileName(t *testing.T) {
	strategy := ResolveStrategy(config.WarehouseConfig{})
	profile, ok := strategy.(CLIProfile)
	if !ok {
		t.Fatalf("expected CLIProfile, got %T", strategy)
	}
	if profile.Name != "DEFAULT" {
		t.Errorf("profile name = %q, want DEFAULT", profile.Name)
	}
}

func TestInstanceNameFromHost(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"my-instance.database.cloud.databricks.com", "my-instance"},
		{"my-instance", "my-instance"},
		{"", ""},
		{"workspace.cloud.example.com", "workspace.cloud.example.com"},
	}

	for _, tt := range tests {
		if got := InstanceNameFromHost(tt.host); got != tt.expected {
			t.Errorf("InstanceNameFromHost(%q) = %q, want %q", tt.host, got, tt.expected)
		}
	}
}
