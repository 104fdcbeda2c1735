package core

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/memory"

	"github.com/tubechat/tubechat/internal/store"
)

const (
	SpeakerUser      = "You"
	SpeakerAssistant = "Assistant"
)

// LogEntry is one displayed line of the conversation.
type LogEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Session is the per-user state: the active index, the model-facing memory
// and the displayed log. Methods on ChatService serialize access to it.
type Session struct {
	ID string

	mu        sync.Mutex
	videoRef  string
	retriever Retriever
	meta      *store.IndexMeta
	memory    *memory.ChatMessageHistory
	log       []LogEntry
}

func NewSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		memory: memory.NewChatMessageHistory(),
	}
}

func (s *Session) VideoRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoRef
}

// IndexMeta returns the metadata of the active index, if it carries any.
func (s *Session) IndexMeta() (store.IndexMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return store.IndexMeta{}, false
	}
	return *s.meta, true
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retriever != nil
}

// Log returns a copy of the displayed conversation.
func (s *Session) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Session) Memory() *memory.ChatMessageHistory {
	return s.memory
}

// attach replaces the active index. Memory and log are kept. Callers hold mu.
func (s *Session) attach(videoRef string, r Retriever) {
	s.videoRef = videoRef
	s.retriever = r
	s.meta = nil
	if m, ok := r.(interface{ Meta() store.IndexMeta }); ok {
		meta := m.Meta()
		s.meta = &meta
	}
}
