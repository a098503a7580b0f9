// Package jsonrepair decodes JSON objects produced by language models.
//
// Model output is mostly valid JSON but occasionally carries raw control
// characters or broken escape sequences inside string literals. Parse tries
// a strict decode first and, on failure, applies exactly one repair pass
// before retrying. The single retry bounds the cost per call; anything the
// repair cannot fix surfaces as a MalformedError carrying the original text
// for diagnostics.
//
// Every piece of model-produced JSON in this codebase goes through Parse:
// callers receive either a decoded object or a typed error, never a panic.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates model output that could not be decoded as a JSON
// object even after repair. Check with errors.Is.
var ErrMalformed = errors.New("malformed model output")

// MalformedError carries the original raw text of an undecodable response.
type MalformedError struct {
	// Raw is the unmodified model output, kept for diagnostics.
	Raw string

	cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed model output: %v (raw: %q)", e.cause, truncate(e.Raw, 200))
}

func (e *MalformedError) Unwrap() error { return e.cause }

// Is reports true for ErrMalformed so callers can use errors.Is without
// needing the concrete type.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Parse decodes a JSON object from raw model output.
//
// Markdown code fences are stripped before decoding. If the strict decode
// fails, one escape-repair pass is applied and the decode retried once.
func Parse(raw string) (map[string]any, error) {
	text := stripCodeFences(raw)

	var obj map[string]any
	err := json.Unmarshal([]byte(text), &obj)
	if err == nil {
		return obj, nil
	}

	repaired := repairEscapes(text)
	if repairErr := json.Unmarshal([]byte(repaired), &obj); repairErr == nil {
		return obj, nil
	}

	// Report the original decode error; the repaired failure is derivative.
	return nil, &MalformedError{Raw: raw, cause: err}
}

// repairEscapes normalizes escape sequences inside JSON string literals:
// raw control characters are replaced by their escaped forms, and a
// backslash starting an invalid escape sequence is doubled so it decodes
// as a literal backslash.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch {
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\\':
			if i+1 < len(s) && validEscape(s[i+1:]) {
				b.WriteByte(c)
				i++
				b.WriteByte(s[i])
			} else {
				// Lone or invalid escape: keep the character, drop the
				// backslash's escaping role by doubling it.
				b.WriteString(`\\`)
			}
		case c < 0x20:
			b.WriteString(escapeControl(c))
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// validEscape reports whether s begins with a valid JSON escape tail
// (the character after a backslash, plus hex digits for \u).
func validEscape(s string) bool {
	switch s[0] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	case 'u':
		if len(s) < 5 {
			return false
		}
		for _, c := range s[1:5] {
			if !isHexDigit(byte(c)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// escapeControl returns the JSON escape sequence for a control character.
func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	default:
		return fmt.Sprintf(`\u%04x`, c)
	}
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate shortens s to at most n bytes for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
