package metadata

import (
	"sort"
	"strings"
)

// CommentDescription is the ID3 comment description under which CrossPlay
// stores its provenance map. Comments with any other description belong to
// other software and are preserved untouched.
const CommentDescription = "[CrossPlay] Provenance"

// EncodeProvenance serializes a flat string map as `key=value` pairs joined
// by `;`, with `%`, `;` and `=` percent-escaped in both keys and values.
// Keys are sorted so the encoding is deterministic.
func EncodeProvenance(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, escapeProvenance(k)+"="+escapeProvenance(m[k]))
	}
	return strings.Join(pairs, ";")
}

// DecodeProvenance parses a provenance string back into a map. Malformed
// entries are skipped rather than failing the whole decode, so a foreign or
// damaged comment degrades to an empty map.
func DecodeProvenance(s string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		m[unescapeProvenance(key)] = unescapeProvenance(value)
	}
	return m
}

// The escape set is exactly the delimiter characters plus the escape
// character itself; URL characters pass through verbatim.
func escapeProvenance(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			b.WriteString("%25")
		case ';':
			b.WriteString("%3B")
		case '=':
			b.WriteString("%3D")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func unescapeProvenance(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := hexDigit(s[i+1])
			lo, okLo := hexDigit(s[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
