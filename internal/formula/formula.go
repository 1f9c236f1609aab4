// Package formula extracts field references from Tableau calculation
// expressions. Extraction is a single left-to-right scan with explicit
// quote and comment state; it never evaluates anything.
package formula

import (
	"fmt"
	"strings"
)

// Reference is one field reference found in a formula.
type Reference struct {
	// Raw is the text between the brackets exactly as written, with
	// `]]` escapes still in place.
	Raw string
	// Name is Raw with bracket escaping stripped. Two references that
	// normalize to the same Name count as one.
	Name string
}

// Warning is a recoverable extraction finding. The scan keeps whatever it
// collected before the problem; a warning never discards references.
type Warning struct {
	Message string
}

// scanner states
const (
	stateCode = iota
	stateSingleQuote
	stateDoubleQuote
	stateLineComment
	stateBlockComment
	stateBracket
)

// Extract returns the set of field references in formula, deduplicated by
// normalized name, in order of first appearance. String literals, line
// comments (//) and block comments (/* */) are skipped; bracket-like
// characters inside them never start a reference. An unterminated bracket
// or string yields a warning and the references found so far.
func Extract(formula string) ([]Reference, []Warning) {
	var (
		refs     []Reference
		warnings []Warning
		seen     = map[string]bool{}
		state    = stateCode
		raw      strings.Builder
	)

	runes := []rune(formula)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateCode:
			switch {
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '/' && next == '/':
				state = stateLineComment
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				i++
			case c == '[':
				state = stateBracket
				raw.Reset()
			}

		case stateSingleQuote:
			if c == '\'' {
				state = stateCode
			}

		case stateDoubleQuote:
			if c == '"' {
				state = stateCode
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}

		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateCode
				i++
			}

		case stateBracket:
			if c == ']' {
				if next == ']' {
					// Escaped closing bracket, part of the name.
					raw.WriteRune(']')
					raw.WriteRune(']')
					i++
					continue
				}
				ref := Reference{Raw: raw.String()}
				ref.Name = Normalize(ref.Raw)
				if ref.Name != "" && !seen[ref.Name] {
					seen[ref.Name] = true
					refs = append(refs, ref)
				}
				state = stateCode
				continue
			}
			raw.WriteRune(c)
		}
	}

	switch state {
	case stateBracket:
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("unterminated field reference %q", "["+raw.String()),
		})
	case stateSingleQuote, stateDoubleQuote:
		warnings = append(warnings, Warning{Message: "unterminated string literal"})
	case stateBlockComment:
		warnings = append(warnings, Warning{Message: "unterminated block comment"})
	}

	return refs, warnings
}

// Normalize strips bracket escaping from a raw reference: every `]]`
// becomes `]`. Whitespace is preserved; inside brackets it is part of the
// field name.
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, "]]", "]")
}

// Names is a convenience over Extract returning normalized names only.
func Names(formula string) []string {
	refs, _ := Extract(formula)
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}
