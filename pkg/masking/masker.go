// Package masking redacts sensitive values from structured data and free
// text. Its one caller in this module is Config.Dump; it is never applied to
// the values consumed at dispatch time.
package masking

// Masker is the interface for code-based maskers that need structural
// awareness beyond a single regex (e.g. walking a parsed JSON/YAML tree).
type Masker interface {
	// Name returns the unique identifier for this masker.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the data. Should be fast (string contains, not parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result.
	// Must be defensive: return original data on parse/processing errors.
	Mask(data string) string
}
