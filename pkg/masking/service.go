package masking

// Service applies key-aware and pattern-based redaction. Created once at
// startup (singleton) and safe for concurrent use — it holds no mutable
// state after construction.
type Service struct {
	keyMasker *SensitiveKeyMasker
	patterns  []CompiledPattern
}

// NewService returns a Service over the default sensitive-key set plus the
// built-in free-text patterns.
func NewService() *Service {
	return &Service{
		keyMasker: NewSensitiveKeyMasker(),
		patterns:  builtinPatterns,
	}
}

// MaskJSON redacts sensitive keys in a JSON-shaped string (a config dump, a
// marshaled Environment). Returns data unchanged if it fails to parse.
func (s *Service) MaskJSON(data string) string {
	return s.keyMasker.Mask(data)
}

// MaskValue redacts sensitive keys in an already-decoded value (struct,
// map, slice) by round-tripping it through JSON. Used by Config.Dump.
func (s *Service) MaskValue(v any) any {
	return s.keyMasker.MaskValue(v)
}

// MaskText sweeps free text (log lines, error messages) for inline secret
// assignments and Authorization headers.
func (s *Service) MaskText(text string) string {
	masked := text
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
