// Package finding defines the ephemeral finding instances produced by each
// analysis cycle and the stable identity derivation that lets repeated scans
// reference the same tracked entity.
package finding

import "strings"

// NoPathSentinel is the identity component used when a finding has no path.
const NoPathSentinel = "global"

// Instance represents one detected issue from a single analysis cycle.
// Instances are not persisted directly; they are reconciled into Work
// Documents by the lifecycle engine.
type Instance struct {
	// Code is the finding code (e.g., "WD-M6-003").
	Code string `json:"code"`

	// Metric is the measurement that triggered the finding.
	Metric string `json:"metric"`

	// Summary is a one-line description of the issue.
	Summary string `json:"summary"`

	// Path is the affected file, if any.
	Path string `json:"path,omitempty"`

	// Symbol is the affected symbol within the file, if any.
	Symbol string `json:"symbol,omitempty"`
}

// Identity derives the stable, content-addressed identifier for a finding.
// Identical inputs always produce the identical identity across runs and
// processes: no randomness, no external state.
func Identity(code, path, symbol string) string {
	parts := []string{code, normalizePath(path)}
	if symbol != "" {
		parts = append(parts, sanitize(symbol))
	}
	return strings.Join(parts, "-")
}

// ID returns the stable identity for this instance.
func (in Instance) ID() string {
	return Identity(in.Code, in.Path, in.Symbol)
}

// normalizePath turns a file path into a filesystem-safe identity token.
// Separators and dots are replaced so the identity can be used as a filename.
func normalizePath(path string) string {
	if path == "" {
		return NoPathSentinel
	}
	return sanitize(path)
}

// sanitize replaces every rune outside the identity alphabet (letters,
// digits, '-', '_') with '_'. Identities are used as filenames and store
// keys, and symbols can carry anything a language allows in a method name,
// "(*Foo).Bar" included.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
