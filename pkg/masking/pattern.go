package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement,
// for sweeping free-text log lines (error messages, step logs) rather than
// structured JSON.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns catches secrets embedded in free text: a `key=value` or
// `key: value` pair whose key names a secret, and bearer-token-shaped
// Authorization headers.
var builtinPatterns = []CompiledPattern{
	{
		Name:        "authorization_header",
		Regex:       regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)\S+`),
		Replacement: "${1}" + Redacted,
	},
	{
		Name:        "inline_secret_assignment",
		Regex:       regexp.MustCompile(`(?i)((?:password|secret_key|api_token|app_key)\s*[:=]\s*)\S+`),
		Replacement: "${1}" + Redacted,
	},
}
