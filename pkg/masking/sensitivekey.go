package masking

import (
	"encoding/json"
	"strings"
)

// Redacted is the replacement string for a masked sensitive field value.
const Redacted = "[REDACTED]"

// defaultSensitiveKeys names the JSON/YAML object keys the core treats as
// secret wherever they appear, case-insensitively: Environment credentials
// (§3's appKey/secretKey/apiToken/password), the AI API key, and the
// artifact store's access/secret keys (§6's configuration key list).
var defaultSensitiveKeys = []string{
	"password", "app_key", "appkey", "secret_key", "secretkey",
	"api_token", "apitoken", "api_key", "apikey", "master_key", "masterkey",
	"access_key", "accesskey", "bearer_token", "bearertoken",
}

// SensitiveKeyMasker walks a parsed JSON object tree and replaces the value
// of any key in its configured set with Redacted, recursing into nested
// objects and arrays. Unlike a single regex sweep this survives key
// renaming/casing and never partially redacts a structured value.
type SensitiveKeyMasker struct {
	keys map[string]bool
}

// NewSensitiveKeyMasker returns a masker over the given key names (matched
// case-insensitively), falling back to defaultSensitiveKeys when keys is empty.
func NewSensitiveKeyMasker(keys ...string) *SensitiveKeyMasker {
	if len(keys) == 0 {
		keys = defaultSensitiveKeys
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = true
	}
	return &SensitiveKeyMasker{keys: set}
}

// Name returns the masker's registry key.
func (m *SensitiveKeyMasker) Name() string { return "sensitive_key" }

// AppliesTo reports whether data looks like a JSON object at all; the real
// check happens during Mask's parse attempt.
func (m *SensitiveKeyMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// Mask parses data as JSON, redacts sensitive keys, and re-serializes.
// Returns data unchanged if it does not parse as JSON (defensive).
func (m *SensitiveKeyMasker) Mask(data string) string {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return data
	}
	m.walk(v)
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return string(out)
}

// MaskValue redacts sensitive keys in an already-decoded value in place,
// returning it for convenience. Used on structs round-tripped through
// encoding/json (config dumps, Environment.Credentials) without forcing a
// caller through Mask's string interface.
func (m *SensitiveKeyMasker) MaskValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return v
	}
	m.walk(decoded)
	return decoded
}

func (m *SensitiveKeyMasker) walk(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if m.keys[strings.ToLower(k)] {
				if s, ok := val.(string); !ok || s != "" {
					t[k] = Redacted
				}
				continue
			}
			m.walk(val)
		}
	case []any:
		for _, item := range t {
			m.walk(item)
		}
	}
}
