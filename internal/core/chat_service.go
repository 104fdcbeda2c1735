package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/store"
)

var (
	ErrNoIndex       = errors.New("no video loaded")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrEmptyVideoRef = errors.New("video reference is empty")
)

// Ingester resolves a video reference to an index.
type Ingester interface {
	Ingest(ctx context.Context, ref string) (*store.Index, error)
}

// ChatService runs the user-facing round trips against a Session.
type ChatService struct {
	ingester Ingester
	answers  *AnswerService
	log      logrus.FieldLogger
}

func NewChatService(ingester Ingester, answers *AnswerService, log logrus.FieldLogger) *ChatService {
	return &ChatService{
		ingester: ingester,
		answers:  answers,
		log:      log.WithField(logger.FieldComponent, "chat"),
	}
}

// Load ingests ref and makes it the session's active video. The log and
// memory are kept across loads.
func (s *ChatService) Load(ctx context.Context, sess *Session, ref string) (*store.Index, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyVideoRef
	}
	idx, err := s.ingester.Ingest(ctx, ref)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.attach(ref, idx)
	s.log.WithFields(logrus.Fields{
		logger.FieldSessionID: sess.ID,
		logger.FieldCacheKey:  idx.Meta().Key,
	}).Info("video loaded")
	return idx, nil
}

// Attach makes r the session's active retriever without ingesting.
func (s *ChatService) Attach(sess *Session, ref string, r Retriever) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.attach(ref, r)
}

// Ask answers a free-form question and records it in both the log and memory.
func (s *ChatService) Ask(ctx context.Context, sess *Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	answer, err := s.answer(ctx, sess, question, ModeChat)
	if err != nil {
		return "", err
	}
	sess.log = append(sess.log,
		LogEntry{Speaker: SpeakerUser, Text: question},
		LogEntry{Speaker: SpeakerAssistant, Text: answer},
	)
	return answer, nil
}

// Analyze runs a canned analysis. The turn goes to memory but not to the log.
func (s *ChatService) Analyze(ctx context.Context, sess *Session, mode Mode) (string, error) {
	if !mode.IsAnalysis() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.answer(ctx, sess, mode.Question(), mode)
}

// answer requires sess.mu to be held.
func (s *ChatService) answer(ctx context.Context, sess *Session, question string, mode Mode) (string, error) {
	if sess.retriever == nil {
		return "", ErrNoIndex
	}
	answer, err := s.answers.Answer(ctx, sess.retriever, question, mode, sess.memory)
	if err != nil {
		s.log.WithError(err).WithField(logger.FieldSessionID, sess.ID).Error("answer failed")
		return "", err
	}
	if err := sess.memory.AddUserMessage(ctx, question); err != nil {
		return "", fmt.Errorf("failed to save question to memory: %w", err)
	}
	if err := sess.memory.AddAIMessage(ctx, answer); err != nil {
		return "", fmt.Errorf("failed to save answer to memory: %w", err)
	}
	return answer, nil
}
