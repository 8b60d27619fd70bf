package persistence

import "strings"

// joinURL joins path segments with "/", preserving a leading separator on
// the first segment (these calls are given plain absolute paths directly,
// with no "file://" scheme).
func joinURL(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	abs := strings.HasPrefix(parts[0], "/")
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(p)
	}
	out := b.String()
	if abs {
		out = "/" + out
	}
	return out
}
