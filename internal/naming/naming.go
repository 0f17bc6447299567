// SPDX-License-Identifier: MPL-2.0

// Package naming canonicalizes user-supplied module and library names into
// the casings used across the library and Godot project trees.
//
// A single raw name yields three forms: the PascalCase identifier used in
// generated source and as the manifest key, the snake_case file stem used
// for file names, and the untouched display name.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid name")

type (
	// Name holds the canonical forms of a user-supplied name. Values are
	// produced by Normalize and are immutable by convention.
	Name struct {
		// Display is the raw name exactly as the user supplied it.
		Display string
		// Identifier is the PascalCase form, unique key within a manifest.
		Identifier string
		// FileStem is the snake_case form used for file names.
		FileStem string
	}

	// InvalidNameError is returned when a raw name cannot be normalized.
	InvalidNameError struct {
		Raw    string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Raw, e.Reason)
}

// Unwrap returns ErrInvalidName so callers can use errors.Is.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Normalize canonicalizes a raw name into its identifier, file-stem, and
// display forms. It is pure: the same input always yields the same Name and
// no filesystem or process state is consulted.
//
// Word boundaries are detected from separators ('-', '_', ' ') and from
// capitalization transitions, including acronym runs ("HTTPServer" splits
// into "HTTP" + "Server"). A single all-lowercase run with no separators is
// treated as one word, so multi-word names must be supplied pre-cased:
// "mainscene" stays one word while "MainScene" splits. This matches the
// documented contract rather than guessing at a dictionary-based split.
func Normalize(raw string) (Name, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Name{}, &InvalidNameError{Raw: raw, Reason: "name is empty"}
	}

	for _, r := range trimmed {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != ' ' {
			return Name{}, &InvalidNameError{Raw: raw, Reason: fmt.Sprintf("unsupported character %q", r)}
		}
	}

	words := splitWords(trimmed)
	if len(words) == 0 {
		return Name{}, &InvalidNameError{Raw: raw, Reason: "name contains no words"}
	}
	if first := []rune(words[0])[0]; !unicode.IsLetter(first) {
		return Name{}, &InvalidNameError{Raw: raw, Reason: "name must start with a letter"}
	}

	var ident, stem strings.Builder
	for i, w := range words {
		lower := []rune(strings.ToLower(w))
		ident.WriteString(strings.ToUpper(string(lower[0])))
		ident.WriteString(string(lower[1:]))
		if i > 0 {
			stem.WriteByte('_')
		}
		stem.WriteString(string(lower))
	}

	return Name{
		Display:    trimmed,
		Identifier: ident.String(),
		FileStem:   stem.String(),
	}, nil
}

// splitWords breaks a name into words at separators and capitalization
// transitions. An uppercase run followed by a lowercase letter is treated as
// an acronym whose final letter starts the next word.
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
	)

	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			prev := rune(0)
			if i > 0 {
				prev = runes[i-1]
			}
			next := rune(0)
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			// Boundary on lower->upper, and before the last letter of an
			// acronym run (upper->upper followed by lower).
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && unicode.IsLower(next)) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	return words
}
