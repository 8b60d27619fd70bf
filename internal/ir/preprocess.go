package ir

import "strings"

// StripComments blanks out '#' comment text with spaces, preserving the
// byte length (and therefore every downstream span) of the source. It tracks
// single-, double- and triple-quoted string state, so a '#' inside a string
// literal is left as it is.
func StripComments(source string) string {
	out := []byte(source)
	inSingle, inDouble, inTriple := false, false, byte(0)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case inTriple != 0:
			if c == inTriple && i+2 < len(out) && out[i+1] == inTriple && out[i+2] == inTriple {
				i += 2
				inTriple = 0
			}
		case inSingle:
			if c == '\'' && !escaped(out, i) {
				inSingle = false
			}
		case inDouble:
			if c == '"' && !escaped(out, i) {
				inDouble = false
			}
		case c == '\'':
			if i+2 < len(out) && out[i+1] == '\'' && out[i+2] == '\'' {
				inTriple = '\''
				i += 2
			} else {
				inSingle = true
			}
		case c == '"':
			if i+2 < len(out) && out[i+1] == '"' && out[i+2] == '"' {
				inTriple = '"'
				i += 2
			} else {
				inDouble = true
			}
		case c == '#':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		}
	}
	return string(out)
}

func escaped(b []byte, i int) bool {
	backslashes := 0
	for j := i - 1; j >= 0 && b[j] == '\\'; j-- {
		backslashes++
	}
	return backslashes%2 == 1
}

// docstringKinds names the body-owning node kinds whose first statement,
// when it is a bare string expression, is treated as a docstring rather
// than a literal IR node.
var docstringKinds = map[Kind]bool{
	KindModule:   true,
	KindFunction: true,
	KindClass:    true,
}

// IsDocstringSlot reports whether kind's body leading statement should be
// scanned for a docstring to drop.
func IsDocstringSlot(kind Kind) bool {
	return docstringKinds[kind]
}

// looksLikeDocstring reports whether trimmed statement text is a bare
// string literal expression (single or triple quoted, optionally prefixed
// with r/b/u/f in any case combination).
func looksLikeDocstring(stmtText string) bool {
	s := strings.TrimSpace(stmtText)
	if s == "" {
		return false
	}
	i := 0
	for i < len(s) && isStringPrefixByte(s[i]) {
		i++
		if i > 2 {
			return false
		}
	}
	rest := s[i:]
	return strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, "'''") ||
		strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "'")
}

func isStringPrefixByte(c byte) bool {
	switch c {
	case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
		return true
	}
	return false
}
