package attendee

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smartcal/internal/models"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.co", true},
		{"first.last+tag@mail.example.com", true},
		{"a@b", false},
		{"a@b.c", false},
		{"", false},
		{"no at sign.com", false},
		{"a@@b.com", false},
		{"a@b@c.com", false},
		{"a b@c.com", false},
		{"김철수", false},
		{"a@b.한", false},
		{"a@b.\u00e9", false},
		{"a@b.한국", true},
		{"a\u00a0b@c.com", false},
		{"a\u3000b@c.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEmail(tt.in))
		})
	}
}

func TestEmailOf(t *testing.T) {
	assert.Equal(t, "x@y.com", EmailOf("  x@y.com "))
	assert.Equal(t, "x@y.com", EmailOf(map[string]any{"email": "x@y.com", "name": "X"}))
	assert.Equal(t, "a@y.com", EmailOf(map[string]any{"mail": "a@y.com"}))
	assert.Equal(t, "", EmailOf(map[string]any{"mail": "a@y.com", "zz": "b@y.com"}))
	assert.Equal(t, "x@y.com", EmailOf("\u00a0x@y.com\u3000"))
	assert.Equal(t, "x@y.com", EmailOf(models.Attendee{Email: "x@y.com"}))
	assert.Equal(t, "", EmailOf(map[string]any{}))
	assert.Equal(t, "", EmailOf(map[string]any{"count": 3.0}))
	assert.Equal(t, "", EmailOf(42.0))
	assert.Equal(t, "", EmailOf(nil))
}

func TestEmailOf_ObjectFirstKey(t *testing.T) {
	kim := models.Object{Keys: []string{"name", "contact"}, Values: map[string]any{"name": "Kim", "contact": "k@x.com"}}
	park := models.Object{Keys: []string{"contact", "name"}, Values: map[string]any{"contact": "p@x.com", "name": "Park"}}
	lee := models.Object{Keys: []string{"name", "email"}, Values: map[string]any{"name": "Lee", "email": "lee@x.com"}}

	assert.Equal(t, "Kim", EmailOf(kim))
	assert.Equal(t, "p@x.com", EmailOf(park))
	assert.Equal(t, "lee@x.com", EmailOf(lee))
	assert.Equal(t, "", EmailOf(models.Object{}))

	assert.Equal(t, []string{"p@x.com", "lee@x.com"}, MergeAndValidate([]any{kim, park, lee}, nil))
}

func TestMergeAndValidate_MultiKeyMapWithoutEmail(t *testing.T) {
	assert.Empty(t, MergeAndValidate([]any{map[string]any{"name": "Kim", "contact": "k@x.com"}}, nil))
}

func TestMergeAndValidate(t *testing.T) {
	got := MergeAndValidate([]any{"x@y.com", "x@y.com"}, []any{"z@w.org"})
	assert.Equal(t, []string{"x@y.com", "z@w.org"}, got)
}

func TestMergeAndValidate_CaseInsensitiveFirstSpellingWins(t *testing.T) {
	got := MergeAndValidate(
		[]any{"Kim@Example.com", "홍길동", map[string]any{"email": "lee@example.com"}},
		Strings([]string{"kim@example.com", "park@example.co.kr", "bad@host"}),
	)
	assert.Equal(t, []string{"Kim@Example.com", "lee@example.com", "park@example.co.kr"}, got)
}

func TestMergeAndValidate_Empty(t *testing.T) {
	assert.Empty(t, MergeAndValidate(nil, nil))
}
