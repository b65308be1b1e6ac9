// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// TemplateSpan is one ${expr} hole of a template literal together with the
// literal text that follows it.
type TemplateSpan struct {
	Expression *Node
	Literal    string
}

// IsStringLiteralLike reports whether n is a string literal or a template
// literal without substitutions.
func IsStringLiteralLike(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.kind {
	case KindString:
		return true
	case KindTemplate:
		return len(n.Substitutions()) == 0
	}
	return false
}

// StringValue returns the cooked value of a string-literal-like node, with
// escape sequences processed.
func (n *Node) StringValue() (string, bool) {
	if !IsStringLiteralLike(n) {
		return "", false
	}
	raw := n.Text()
	if len(raw) < 2 {
		return "", false
	}
	body := raw[1 : len(raw)-1]
	if n.kind == KindTemplate {
		body = normalizeNewlines(body)
	}
	return Unescape(body), true
}

// TemplateParts splits a template literal into its head text and holes.
func (n *Node) TemplateParts() (string, []TemplateSpan, bool) {
	if n == nil || n.kind != KindTemplate {
		return "", nil, false
	}
	subs := n.Substitutions()
	pos := n.start + 1
	chunk := func(from, to int) string {
		if from > to || from < 0 || to > len(n.source) {
			return ""
		}
		return Unescape(normalizeNewlines(string(n.source[from:to])))
	}

	head := ""
	spans := make([]TemplateSpan, 0, len(subs))
	for i, sub := range subs {
		text := chunk(pos, sub.start)
		if i == 0 {
			head = text
		} else {
			spans[i-1].Literal = text
		}
		spans = append(spans, TemplateSpan{Expression: sub.Expression()})
		pos = sub.end
	}
	tail := chunk(pos, n.end-1)
	if len(spans) == 0 {
		head = tail
	} else {
		spans[len(spans)-1].Literal = tail
	}
	return head, spans, true
}

// NumberValue returns the canonical decimal text of a numeric literal, the
// way JavaScript would stringify it ("0x10" -> "16", "1.50" -> "1.5").
func (n *Node) NumberValue() (string, bool) {
	if n == nil || n.kind != KindNumber {
		return "", false
	}
	return FormatNumber(n.Text()), true
}

// FormatNumber canonicalizes numeric literal text the way Number#toString
// prints the value. BigInt literals ("10n") keep full precision. Unparseable
// input is returned unchanged.
func FormatNumber(text string) string {
	bigint := strings.HasSuffix(text, "n")
	clean := strings.ReplaceAll(strings.TrimSuffix(text, "n"), "_", "")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		if bigint {
			return strconv.FormatInt(i, 10)
		}
		return formatFloat(float64(i))
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return text
	}
	return formatFloat(f)
}

// formatFloat renders f with the shortest round-tripping digits, in plain
// decimal notation for exponents in [-7, 21) and as d.ddde±x otherwise.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f < 0:
		return "-" + formatFloat(-f)
	}

	// Shortest digits as "d.ddde±xx".
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mantissa, ".", "", 1)
	k, n := len(digits), exp+1

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}
	sign := "+"
	if n-1 < 0 {
		sign = "-"
	}
	e := strconv.Itoa(abs(n - 1))
	if k == 1 {
		return digits + "e" + sign + e
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + e
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Unescape processes JavaScript string escape sequences.
//
// Description:
//
//	Handles single-character escapes (\n, \t, \b, \f, \v, \r, \0), hex
//	(\xHH), unicode (\uHHHH, including surrogate pairs, and \u{H...}) and
//	line continuations. Any other escaped character stands for itself, so
//	\` \" \' \\ and \$ cook to their literal character.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		next := s[i+1]
		i += 2
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case 'x':
			if r, ok := parseHex(s, i, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte('x')
			}
		case 'u':
			r, width := parseUnicodeEscape(s, i)
			if width == 0 {
				b.WriteByte('u')
				continue
			}
			i += width
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i:], `\u`) {
				if low, w := parseUnicodeEscape(s, i+2); w > 0 {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						b.WriteRune(pair)
						i += 2 + w
						continue
					}
				}
			}
			b.WriteRune(r)
		default:
			// Copy the whole escaped rune, which may be multi-byte.
			r, size := utf8.DecodeRuneInString(s[i-1:])
			if r == '\u2028' || r == '\u2029' {
				i += size - 1
				continue
			}
			b.WriteString(s[i-1 : i-1+size])
			i += size - 1
		}
	}
	return b.String()
}

// parseUnicodeEscape parses the part after \u and returns the rune and the
// number of bytes consumed, or width 0 when malformed.
func parseUnicodeEscape(s string, at int) (rune, int) {
	if at < len(s) && s[at] == '{' {
		end := strings.IndexByte(s[at:], '}')
		if end <= 1 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[at+1:at+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, 0
		}
		return rune(v), end + 1
	}
	r, ok := parseHex(s, at, 4)
	if !ok {
		return 0, 0
	}
	return r, 4
}

func parseHex(s string, at, digits int) (rune, bool) {
	if at+digits > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+digits], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
