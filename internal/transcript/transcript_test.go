package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		docs     []Document
		wantLang string
		wantText string
	}{
		{
			name: "arabic wins even when listed last",
			docs: []Document{
				{Text: "hello", Language: "en"},
				{Text: "bonjour", Language: "fr"},
				{Text: "مرحبا", Language: "ar"},
			},
			wantLang: "ar",
			wantText: "مرحبا",
		},
		{
			name: "all arabic documents are merged in order",
			docs: []Document{
				{Text: "one", Language: "ar"},
				{Text: "skip", Language: "en"},
				{Text: "two", Language: "ar"},
			},
			wantLang: "ar",
			wantText: "one\ntwo",
		},
		{
			name: "english without arabic",
			docs: []Document{
				{Text: "hola", Language: "es"},
				{Text: "hello", Language: "en"},
			},
			wantLang: "en",
			wantText: "hello",
		},
		{
			name: "neither falls back to first document's tag",
			docs: []Document{
				{Text: "hallo", Language: "de"},
				{Text: "hola", Language: "es"},
			},
			wantLang: "de",
			wantText: "hallo\nhola",
		},
		{
			name: "untagged first document yields unknown",
			docs: []Document{
				{Text: "some words"},
				{Text: "more words", Language: "es"},
			},
			wantLang: "unknown",
			wantText: "some words\nmore words",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(tt.docs)
			assert.Equal(t, tt.wantLang, sel.Language)
			assert.Equal(t, tt.wantText, sel.Text)
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty([]Document{{Text: "  \n"}}))
	assert.False(t, IsEmpty([]Document{{Text: ""}, {Text: "x"}}))
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		ref    string
		wantID string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=abc123&t=30", "abc123", true},
		{"https://m.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=abc123", "", false},
		{"not a link", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			id, ok := VideoID(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "abc123_en", CacheKey("https://…?v=abc123", "en"))
	assert.Equal(t, "abc123_ar", CacheKey("https://www.youtube.com/watch?v=abc123&t=30", "ar"))
	assert.Equal(t, "dQw4w9WgXcQ_unknown", CacheKey("https://youtu.be/dQw4w9WgXcQ", "unknown"))
	assert.Equal(t, "foo_bar_en", CacheKey("https://example.com/x?id=foo&bar", "en"))
}
