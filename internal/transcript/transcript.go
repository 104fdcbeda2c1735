package transcript

import (
	"context"
	"errors"
	"strings"
)

const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
	LanguageUnknown = "unknown"
)

var (
	// ErrTranscriptUnavailable is returned when every fetch strategy failed.
	ErrTranscriptUnavailable = errors.New("unable to load video transcript")
	// ErrEmptyTranscript marks a fetch that succeeded but carried no text.
	ErrEmptyTranscript = errors.New("transcript returned empty")
)

// Document is one language-tagged piece of transcript text.
type Document struct {
	Text     string            `json:"text"`
	Language string            `json:"language,omitempty"` // empty when the provider reported none
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FetchOptions controls how much the provider asks for.
type FetchOptions struct {
	// VideoInfo requests extended video metadata alongside the captions.
	VideoInfo bool
}

// Provider fetches transcript documents for a video reference.
type Provider interface {
	Fetch(ctx context.Context, videoRef string, opts FetchOptions) ([]Document, error)
}

// Selection is the single language chosen for a video and its merged text.
type Selection struct {
	Language  string
	Text      string
	Documents []Document
}

// Select picks "ar" documents if any, else "en", else all of them tagged with the
// first document's language ("unknown" when it has none). docs must be non-empty.
func Select(docs []Document) Selection {
	var arabic, english []Document
	for _, doc := range docs {
		switch doc.Language {
		case LanguageArabic:
			arabic = append(arabic, doc)
		case LanguageEnglish:
			english = append(english, doc)
		}
	}

	var sel Selection
	switch {
	case len(arabic) > 0:
		sel = Selection{Language: LanguageArabic, Documents: arabic}
	case len(english) > 0:
		sel = Selection{Language: LanguageEnglish, Documents: english}
	default:
		lang := LanguageUnknown
		if len(docs) > 0 && docs[0].Language != "" {
			lang = docs[0].Language
		}
		sel = Selection{Language: lang, Documents: docs}
	}
	sel.Text = Merge(sel.Documents)
	return sel
}

// Merge joins document texts with newlines.
func Merge(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Text)
	}
	return strings.Join(parts, "\n")
}

// IsEmpty reports whether docs carry no usable text.
func IsEmpty(docs []Document) bool {
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) != "" {
			return false
		}
	}
	return true
}
