package jstext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustCompile_MatchesUnicodeSpaces(t *testing.T) {
	re := MustCompile(`^a\s+b$`)
	for _, in := range []string{"a b", "a\u00a0b", "a\u3000b", "a\ufeffb", "a\u2009b", "a\t\nb"} {
		assert.True(t, re.MatchString(in), "%q", in)
	}
	assert.False(t, re.MatchString("a\u0085b"))
	assert.False(t, re.MatchString("ab"))
}

func TestMustCompile_InsideClass(t *testing.T) {
	re := MustCompile(`^[^\s@]+@[^\s@]+$`)
	assert.True(t, re.MatchString("a@b"))
	assert.False(t, re.MatchString("a x@b"))

	re = MustCompile(`^[가-힣\s\-]+$`)
	assert.True(t, re.MatchString("팀\u3000미팅-회의"))
}

func TestMustCompile_NotSpace(t *testing.T) {
	re := MustCompile(`^\S+$`)
	assert.True(t, re.MatchString("회의"))
	assert.False(t, re.MatchString("회 의"))

	assert.Panics(t, func() { MustCompile(`[\S]`) })
}

func TestMustCompile_LeavesOtherEscapes(t *testing.T) {
	assert.Equal(t, `\d+\.\(x\)[\]a]`, expand(`\d+\.\(x\)[\]a]`))
	assert.Equal(t, `[]\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`, expand(`[]\s]`))
}

func TestTrimSpace(t *testing.T) {
	assert.Equal(t, "회의", TrimSpace("\ufeff\u00a0 회의\u3000\n"))
	assert.Equal(t, "\u0085x", TrimSpace("\u0085x "))
	assert.Equal(t, "", TrimSpace("\u2000\u200a"))
}
