package warehouse

// The credential generation response has drifted across API revisions, so the
// username and secret are located by trying an ordered list of candidate
// extractors against the raw document. Each extractor returns the value and
// whether it matched a non-empty string.

type fieldExtractor func(map[string]any) (string, bool)

// keyExtractor matches a top-level string field by name.
func keyExtractor(key string) fieldExtractor {
	return func(payload map[string]any) (string, bool) {
		v, ok := payload[key]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
}

var usernameExtractors = []fieldExtractor{
	keyExtractor("username"),
	keyExtractor("user"),
	keyExtractor("user_name"),
	keyExtractor("login"),
}

var secretExtractors = []fieldExtractor{
	keyExtractor("password"),
	keyExtractor("passwd"),
	keyExtractor("secret"),
	keyExtractor("token"),
	keyExtractor("access_token"),
}

// ExtractUsername probes the credential response for a username field.
func ExtractUsername(payload map[string]any) (string, bool) {
	return extractFirst(payload, usernameExtractors)
}

// ExtractSecret probes the credential response for a secret field.
func ExtractSecret(payload map[string]any) (string, bool) {
	return extractFirst(payload, secretExtractors)
}

func extractFirst(payload map[string]any, extractors []fieldExtractor) (string, bool) {
	if payload == nil {
		return "", false
	}
	for _, extract := range extractors {
		if v, ok := extract(payload); ok {
			return v, true
		}
	}
	return "", false
}
