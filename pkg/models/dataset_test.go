package models

import (
	"encoding/json"
	"testing"
)

func TestCanonicalCategory(t *testing.T) {
	tests := []struct {
		raw      string
		expected DatasetCategory
	}{
		{"MARKET_TRADING", CategoryMarketTrading},
		{"Market Trading", CategoryMarketTrading},
		{"ESG_SUSTAINABILITY", CategoryESGSustainability},
		{"ESG & Sustainability", CategoryESGSustainability},
		{"RISK_COMPLIANCE", CategoryRiskCompliance},
		{"something else", DatasetCategory("something else")},
	}

	for _, tt := range tests {
		if got := CanonicalCategory(tt.raw); got != tt.expected {
			t.Errorf("CanonicalCategory(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestCanonicalPricingModel(t *testing.T) {
	tests := []struct {
		raw      string
		expected PricingModel
	}{
		{"FREE", PricingFree},
		{"ONE_TIME", PricingOneTime},
		{"CUSTOM", PricingOneTime},
		{"Pay-per-use", PricingPayPerUse},
		{"bespoke", PricingModel("bespoke")},
	}

	for _, tt := range tests {
		if got := CanonicalPricingModel(tt.raw); got != tt.expected {
			t.Errorf("CanonicalPricingModel(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestCanonicalAccessLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected AccessLevel
	}{
		{"PUBLIC", AccessPublic},
		{"RESTRICTED", AccessPremium},
		{"PRIVATE", AccessEnterprise},
		{"Enterprise", AccessEnterprise},
	}

	for _, tt := range tests {
		if got := CanonicalAccessLevel(tt.raw); got != tt.expected {
			t.Errorf("CanonicalAccessLevel(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestCanonicalFrequency(t *testing.T) {
	if got := CanonicalFrequency("REAL_TIME"); got != FrequencyRealTime {
		t.Errorf("CanonicalFrequency(REAL_TIME) = %q", got)
	}
	if got := CanonicalFrequency("ANNUALLY"); got != FrequencyAnnually {
		t.Errorf("CanonicalFrequency(ANNUALLY) = %q", got)
	}
}

func TestKnownCategory(t *testing.T) {
	if !KnownCategory("MARKET_TRADING") {
		t.Error("MARKET_TRADING should be known")
	}
	if !KnownCategory("Credit Risk") {
		t.Error("Credit Risk should be known")
	}
	if KnownCategory("WEATHER") {
		t.Error("WEATHER should not be known")
	}
}

func TestTimeRangeUnmarshal(t *testing.T) {
	t.Run("start and end", func(t *testing.T) {
		var tr TimeRange
		err := json.Unmarshal([]byte(`{"start": "2020-01-01T00:00:00Z", "end": "2025-01-01T00:00:00Z"}`), &tr)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Start.Year() != 2020 || tr.End.Year() != 2025 {
			t.Errorf("unexpected range: %v - %v", tr.Start, tr.End)
		}
	})

	t.Run("from and to", func(t *testing.T) {
		var tr TimeRange
		err := json.Unmarshal([]byte(`{"from": "2020-01-01T00:00:00Z", "to": "2025-01-01T00:00:00Z"}`), &tr)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Start.Year() != 2020 || tr.End.Year() != 2025 {
			t.Errorf("unexpected range: %v - %v", tr.Start, tr.End)
		}
	})

	t.Run("start wins over from", func(t *testing.T) {
		var tr TimeRange
		err := json.Unmarshal([]byte(`{"start": "2021-01-01T00:00:00Z", "from": "2020-01-01T00:00:00Z"}`), &tr)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Start.Year() != 2021 {
			t.Errorf("start = %v, want 2021", tr.Start)
		}
	})
}
