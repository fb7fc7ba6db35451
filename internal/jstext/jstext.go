// Package jstext gives regular expressions and trimming the whitespace
// definition model prompts and browser text assume: besides ASCII space it
// covers NBSP, the ideographic space, the BOM and the other Unicode spaces.
package jstext

import (
	"fmt"
	"regexp"
	"strings"
)

// spaceSet is the members of \s, written for use inside a character class.
const spaceSet = `\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

// MustCompile is regexp.MustCompile with \s and \S widened to the Unicode
// space set. \S inside a bracket expression cannot be expressed and panics.
func MustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(expand(expr))
}

func expand(expr string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\\' && i+1 < len(expr) {
			next := expr[i+1]
			i++
			switch {
			case next == 's' && inClass:
				b.WriteString(spaceSet)
			case next == 's':
				b.WriteString("[" + spaceSet + "]")
			case next == 'S' && inClass:
				panic(fmt.Sprintf("jstext: \\S inside a character class in %q", expr))
			case next == 'S':
				b.WriteString("[^" + spaceSet + "]")
			default:
				b.WriteByte(c)
				b.WriteByte(next)
			}
			continue
		}
		switch {
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			// A leading ] or ^] is literal.
			if i+1 < len(expr) && expr[i+1] == '^' {
				b.WriteByte('^')
				i++
			}
			if i+1 < len(expr) && expr[i+1] == ']' {
				b.WriteByte(']')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsSpace reports whether r is in the space set.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xa0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

// TrimSpace removes leading and trailing runes in the space set.
func TrimSpace(s string) string {
	return strings.TrimFunc(s, IsSpace)
}
