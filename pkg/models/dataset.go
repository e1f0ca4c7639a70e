// Package models defines the dataset catalog model and the permissive
// enum mapping applied to values read from the database or the JSON
// fallback file, which use a mix of constant-style and display-style
// spellings for the same enums.
package models

import (
	"encoding/json"
	"time"
)

// DatasetCategory is the marketplace category of a dataset.
type DatasetCategory string

const (
	CategoryMarketTrading     DatasetCategory = "Market Trading"
	CategoryAlternativeData   DatasetCategory = "Alternative Data"
	CategoryReferenceData     DatasetCategory = "Reference Data"
	CategoryRiskCompliance    DatasetCategory = "Risk & Compliance"
	CategoryCustomerAnalytics DatasetCategory = "Customer Analytics"
	CategoryESGSustainability DatasetCategory = "ESG & Sustainability"
	CategoryCreditRisk        DatasetCategory = "Credit Risk"
	CategoryFraudDetection    DatasetCategory = "Fraud Detection"
)

// DataFrequency is how often a dataset is updated.
type DataFrequency string

const (
	FrequencyRealTime  DataFrequency = "Real-time"
	FrequencyDaily     DataFrequency = "Daily"
	FrequencyWeekly    DataFrequency = "Weekly"
	FrequencyMonthly   DataFrequency = "Monthly"
	FrequencyQuarterly DataFrequency = "Quarterly"
	FrequencyAnnually  DataFrequency = "Annual"
)

// PricingModel is how access to a dataset is priced.
type PricingModel string

const (
	PricingFree         PricingModel = "Free"
	PricingOneTime      PricingModel = "One-time Purchase"
	PricingSubscription PricingModel = "Subscription"
	PricingPayPerUse    PricingModel = "Pay-per-use"
)

// AccessLevel is the access tier required for a dataset.
type AccessLevel string

const (
	AccessPublic     AccessLevel = "Public"
	AccessPremium    AccessLevel = "Premium"
	AccessEnterprise AccessLevel = "Enterprise"
)

// categoryAliases maps both constant-style database values and display
// values to canonical categories.
var categoryAliases = map[string]DatasetCategory{
	"MARKET_TRADING":     CategoryMarketTrading,
	"ALTERNATIVE_DATA":   CategoryAlternativeData,
	"REFERENCE_DATA":     CategoryReferenceData,
	"RISK_COMPLIANCE":    CategoryRiskCompliance,
	"CUSTOMER_ANALYTICS": CategoryCustomerAnalytics,
	"ESG_SUSTAINABILITY": CategoryESGSustainability,
	"CREDIT_RISK":        CategoryCreditRisk,
	"FRAUD_DETECTION":    CategoryFraudDetection,

	"Market Trading":       CategoryMarketTrading,
	"Alternative Data":     CategoryAlternativeData,
	"Reference Data":       CategoryReferenceData,
	"Risk & Compliance":    CategoryRiskCompliance,
	"Customer Analytics":   CategoryCustomerAnalytics,
	"ESG & Sustainability": CategoryESGSustainability,
	"Credit Risk":          CategoryCreditRisk,
	"Fraud Detection":      CategoryFraudDetection,
}

var frequencyAliases = map[string]DataFrequency{
	"REAL_TIME": FrequencyRealTime,
	"DAILY":     FrequencyDaily,
	"WEEKLY":    FrequencyWeekly,
	"MONTHLY":   FrequencyMonthly,
	"QUARTERLY": FrequencyQuarterly,
	"ANNUALLY":  FrequencyAnnually,

	"Real-time": FrequencyRealTime,
	"Daily":     FrequencyDaily,
	"Weekly":    FrequencyWeekly,
	"Monthly":   FrequencyMonthly,
	"Quarterly": FrequencyQuarterly,
	"Annual":    FrequencyAnnually,
}

var pricingAliases = map[string]PricingModel{
	"FREE":         PricingFree,
	"ONE_TIME":     PricingOneTime,
	"SUBSCRIPTION": PricingSubscription,
	"PAY_PER_USE":  PricingPayPerUse,
	// CUSTOM has no dedicated tier; treated as one-time purchase.
	"CUSTOM": PricingOneTime,

	"Free":              PricingFree,
	"One-time Purchase": PricingOneTime,
	"Subscription":      PricingSubscription,
	"Pay-per-use":       PricingPayPerUse,
}

var accessAliases = map[string]AccessLevel{
	"PUBLIC":     AccessPublic,
	"PREMIUM":    AccessPremium,
	"ENTERPRISE": AccessEnterprise,
	// RESTRICTED and PRIVATE map to the closest supported tiers.
	"RESTRICTED": AccessPremium,
	"PRIVATE":    AccessEnterprise,

	"Public":     AccessPublic,
	"Premium":    AccessPremium,
	"Enterprise": AccessEnterprise,
}

// CanonicalCategory maps a raw stored value to its canonical category.
// Unknown values pass through unchanged to avoid losing data.
func CanonicalCategory(raw string) DatasetCategory {
	if c, ok := categoryAliases[raw]; ok {
		return c
	}
	return DatasetCategory(raw)
}

// CanonicalFrequency maps a raw stored value to its canonical frequency.
func CanonicalFrequency(raw string) DataFrequency {
	if f, ok := frequencyAliases[raw]; ok {
		return f
	}
	return DataFrequency(raw)
}

// CanonicalPricingModel maps a raw stored value to its canonical pricing model.
func CanonicalPricingModel(raw string) PricingModel {
	if p, ok := pricingAliases[raw]; ok {
		return p
	}
	return PricingModel(raw)
}

// CanonicalAccessLevel maps a raw stored value to its canonical access level.
func CanonicalAccessLevel(raw string) AccessLevel {
	if a, ok := accessAliases[raw]; ok {
		return a
	}
	return AccessLevel(raw)
}

// KnownCategory reports whether raw maps to a supported category.
func KnownCategory(raw string) bool {
	_, ok := categoryAliases[raw]
	return ok
}

// Provider describes the organization publishing a dataset.
type Provider struct {
	Name     string `json:"name"`
	Logo     string `json:"logo,omitempty"`
	Verified bool   `json:"verified"`
}

// TimeRange is the time span a dataset covers. The JSON fallback file
// spells the bounds "from"/"to" while API responses use "start"/"end";
// decoding accepts either.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UnmarshalJSON accepts both start/end and from/to key pairs.
func (t *TimeRange) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start *time.Time `json:"start"`
		End   *time.Time `json:"end"`
		From  *time.Time `json:"from"`
		To    *time.Time `json:"to"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Start != nil:
		t.Start = *raw.Start
	case raw.From != nil:
		t.Start = *raw.From
	}
	switch {
	case raw.End != nil:
		t.End = *raw.End
	case raw.To != nil:
		t.End = *raw.To
	}
	return nil
}

// Dataset is a single marketplace listing.
type Dataset struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Provider           Provider        `json:"provider"`
	Category           DatasetCategory `json:"category"`
	SubCategory        string          `json:"subCategory,omitempty"`
	Frequency          DataFrequency   `json:"frequency"`
	LastUpdated        time.Time       `json:"lastUpdated"`
	PricingModel       PricingModel    `json:"pricingModel"`
	Price              float64         `json:"price"`
	Currency           string          `json:"currency"`
	AccessLevel        AccessLevel     `json:"accessLevel"`
	Rating             float64         `json:"rating"`
	RatingsCount       int             `json:"ratingsCount"`
	DownloadCount      int             `json:"downloadCount"`
	Tags               []string        `json:"tags"`
	Formats            []string        `json:"formats"`
	GeographicCoverage []string        `json:"geographicCoverage"`
	TimeRange          *TimeRange      `json:"timeRange,omitempty"`
	SampleAvailable    bool            `json:"sampleAvailable"`
	SampleURL          string          `json:"sampleUrl,omitempty"`
	PreviewImage       string          `json:"previewImage,omitempty"`
	QualityScore       int             `json:"qualityScore"`
	Verified           bool            `json:"verified"`
}

// DatasetListResponse is the paginated listing envelope.
type DatasetListResponse struct {
	Data  []Dataset `json:"data"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// DatasetStatsResponse summarizes the catalog.
type DatasetStatsResponse struct {
	TotalDatasets  int            `json:"totalDatasets"`
	TotalProviders int            `json:"totalProviders"`
	CategoryCounts map[string]int `json:"categoryCounts"`
}
