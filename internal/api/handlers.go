package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tubechat/tubechat/internal/core"
	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/transcript"
)

type sessionKey struct{}

type APIHandler struct {
	chat     *core.ChatService
	sessions *SessionRegistry
	log      logrus.FieldLogger
}

func NewAPIHandler(chat *core.ChatService, sessions *SessionRegistry, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		chat:     chat,
		sessions: sessions,
		log:      log.WithField(logger.FieldComponent, "api"),
	}
}

// SessionMiddleware resolves {sessionID} and stores the session in the context.
func (h *APIHandler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *core.Session {
	sess, _ := ctx.Value(sessionKey{}).(*core.Session)
	return sess
}

type SessionResponse struct {
	ID       string          `json:"id"`
	VideoRef string          `json:"video_ref,omitempty"`
	CacheKey string          `json:"cache_key,omitempty"`
	Language string          `json:"language,omitempty"`
	History  []core.LogEntry `json:"history"`
}

func sessionResponse(sess *core.Session) SessionResponse {
	resp := SessionResponse{ID: sess.ID, VideoRef: sess.VideoRef(), History: sess.Log()}
	if meta, ok := sess.IndexMeta(); ok {
		resp.CacheKey = meta.Key
		resp.Language = meta.Language
	}
	return resp
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

type LoadRequest struct {
	VideoURL string `json:"video_url"`
}

type LoadResponse struct {
	CacheKey string `json:"cache_key"`
	Language string `json:"language"`
	Chunks   int    `json:"chunks"`
}

func (h *APIHandler) LoadHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	idx, err := h.chat.Load(r.Context(), sess, req.VideoURL)
	if err != nil {
		h.fail(w, sess, err)
		return
	}
	meta := idx.Meta()
	writeJSON(w, http.StatusOK, LoadResponse{CacheKey: meta.Key, Language: meta.Language, Chunks: idx.Len()})
}

type AskRequest struct {
	Question string `json:"question"`
}

type AnswerResponse struct {
	Mode   string `json:"mode,omitempty"`
	Answer string `json:"answer"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := h.chat.Ask(r.Context(), sess, req.Question)
	if err != nil {
		h.fail(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: answer})
}

func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	mode, err := core.ParseMode(chi.URLParam(r, "mode"))
	if err == nil && !mode.IsAnalysis() {
		err = core.ErrUnknownMode
	}
	if err != nil {
		h.fail(w, sess, err)
		return
	}

	answer, err := h.chat.Analyze(r.Context(), sess, mode)
	if err != nil {
		h.fail(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Mode: string(mode), Answer: answer})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse(sessionFrom(r.Context())))
}

func (h *APIHandler) fail(w http.ResponseWriter, sess *core.Session, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField(logger.FieldSessionID, sess.ID).Error("request failed")
	}
	writeError(w, status, err.Error())
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownMode),
		errors.Is(err, core.ErrEmptyQuestion),
		errors.Is(err, core.ErrEmptyVideoRef):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoIndex):
		return http.StatusConflict
	case errors.Is(err, transcript.ErrTranscriptUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
