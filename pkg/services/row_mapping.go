package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lakeview-data/marketplace-api/pkg/models"
)

// rowToDataset converts one database row into a Dataset. Column naming in the
// source table is not uniform (camelCase and snake_case both occur), array
// fields may arrive as JSON text or comma-separated strings, and the provider
// may be a JSON document or a bare name, so every field is probed permissively.
func rowToDataset(row map[string]any) (models.Dataset, error) {
	id := firstString(row, "id")
	if id == "" {
		return models.Dataset{}, fmt.Errorf("row has no id")
	}

	ds := models.Dataset{
		ID:                 id,
		Title:              firstString(row, "title"),
		Description:        firstString(row, "description"),
		SubCategory:        firstString(row, "subCategory", "sub_category"),
		Price:              firstFloat(row, "price"),
		Currency:           firstString(row, "currency"),
		Rating:             firstFloat(row, "rating"),
		RatingsCount:       firstInt(row, "ratingsCount", "ratings_count"),
		DownloadCount:      firstInt(row, "downloadCount", "download_count"),
		Tags:               firstStrings(row, "tags"),
		Formats:            firstStrings(row, "formats"),
		GeographicCoverage: firstStrings(row, "geographicCoverage", "geographic_coverage"),
		SampleAvailable:    firstBool(row, "sampleAvailable", "sample_available"),
		SampleURL:          firstString(row, "sampleUrl", "sample_url"),
		PreviewImage:       firstString(row, "previewImage", "preview_image"),
		QualityScore:       firstInt(row, "qualityScore", "quality_score"),
		Verified:           firstBool(row, "verified"),
	}

	ds.Category = models.CanonicalCategory(firstString(row, "category"))
	ds.Frequency = models.CanonicalFrequency(firstString(row, "frequency"))
	ds.PricingModel = models.CanonicalPricingModel(firstString(row, "pricingModel", "pricing_model"))
	ds.AccessLevel = models.CanonicalAccessLevel(firstString(row, "accessLevel", "access_level"))

	if t, ok := firstTime(row, "lastUpdated", "last_updated"); ok {
		ds.LastUpdated = t
	}
	ds.Provider = parseProvider(firstValue(row, "provider"))
	ds.TimeRange = parseTimeRange(firstValue(row, "timeRange", "time_range"))

	return ds, nil
}

func firstValue(row map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := row[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(row map[string]any, keys ...string) string {
	switch v := firstValue(row, keys...).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func firstFloat(row map[string]any, keys ...string) float64 {
	switch v := firstValue(row, keys...).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func firstInt(row map[string]any, keys ...string) int {
	return int(firstFloat(row, keys...))
}

func firstBool(row map[string]any, keys ...string) bool {
	v, ok := firstValue(row, keys...).(bool)
	return ok && v
}

func firstTime(row map[string]any, keys ...string) (time.Time, bool) {
	switch v := firstValue(row, keys...).(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", v); err == nil {
			return t, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// firstStrings accepts a native string slice, a JSON array, or a
// comma-separated string.
func firstStrings(row map[string]any, keys ...string) []string {
	switch v := firstValue(row, keys...).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var parsed []string
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed
		}
		// Not valid JSON; split on commas as a last resort.
		out := make([]string, 0)
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return nil
	}
}

func parseProvider(value any) models.Provider {
	switch v := value.(type) {
	case map[string]any:
		return models.Provider{
			Name:     stringOr(v["name"]),
			Logo:     stringOr(v["logo"]),
			Verified: boolOr(v["verified"]),
		}
	case string:
		var p models.Provider
		if err := json.Unmarshal([]byte(v), &p); err == nil && p.Name != "" {
			return p
		}
		// A bare provider name; the original treated these as verified.
		return models.Provider{Name: v, Verified: true}
	default:
		return models.Provider{}
	}
}

func parseTimeRange(value any) *models.TimeRange {
	m, ok := value.(map[string]any)
	if !ok {
		if s, isStr := value.(string); isStr {
			var tr models.TimeRange
			if err := json.Unmarshal([]byte(s), &tr); err == nil && !tr.Start.IsZero() {
				return &tr
			}
		}
		return nil
	}

	start, okStart := timeOr(m["start"])
	if !okStart {
		start, okStart = timeOr(m["from"])
	}
	end, okEnd := timeOr(m["end"])
	if !okEnd {
		end, okEnd = timeOr(m["to"])
	}
	if !okStart || !okEnd {
		return nil
	}
	return &models.TimeRange{Start: start, End: end}
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}

func boolOr(v any) bool {
	b, _ := v.(bool)
	return b
}

func timeOr(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
