package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/tubechat/tubechat/internal/core"
	"github.com/tubechat/tubechat/internal/logger"
)

const sessionCookieName = "tubechat_session"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// WebHandler serves the single-page form interface.
type WebHandler struct {
	chat     *core.ChatService
	sessions *SessionRegistry
	log      logrus.FieldLogger
}

func NewWebHandler(chat *core.ChatService, sessions *SessionRegistry, log logrus.FieldLogger) *WebHandler {
	return &WebHandler{
		chat:     chat,
		sessions: sessions,
		log:      log.WithField(logger.FieldComponent, "web"),
	}
}

type modeButton struct {
	Mode  string
	Label string
}

type analysisView struct {
	Label string
	Text  string
}

type pageData struct {
	VideoRef string
	CacheKey string
	Loaded   bool
	Notice   string
	Error    string
	Log      []core.LogEntry
	Modes    []modeButton
	Analysis *analysisView
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an unknown one.
func (h *WebHandler) session(w http.ResponseWriter, r *http.Request) *core.Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := h.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *WebHandler) IndexPage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.render(w, http.StatusOK, sess, pageData{})
}

func (h *WebHandler) LoadForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	idx, err := h.chat.Load(r.Context(), sess, r.FormValue("video_url"))
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, sess, pageData{Notice: "Transcript loaded and indexed (" + idx.Meta().Key + ")."})
}

func (h *WebHandler) AskForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if _, err := h.chat.Ask(r.Context(), sess, r.FormValue("question")); err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, sess, pageData{})
}

func (h *WebHandler) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	mode, err := core.ParseMode(chi.URLParam(r, "mode"))
	if err == nil && !mode.IsAnalysis() {
		err = core.ErrUnknownMode
	}
	if err != nil {
		h.renderError(w, sess, err)
		return
	}

	answer, err := h.chat.Analyze(r.Context(), sess, mode)
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, sess, pageData{Analysis: &analysisView{Label: mode.Label(), Text: answer}})
}

func (h *WebHandler) renderError(w http.ResponseWriter, sess *core.Session, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField(logger.FieldSessionID, sess.ID).Error("request failed")
	}
	msg := err.Error()
	if errors.Is(err, core.ErrNoIndex) {
		msg = "Load a video first."
	}
	h.render(w, status, sess, pageData{Error: msg})
}

func (h *WebHandler) render(w http.ResponseWriter, status int, sess *core.Session, data pageData) {
	data.VideoRef = sess.VideoRef()
	data.Loaded = sess.Loaded()
	data.Log = sess.Log()
	if meta, ok := sess.IndexMeta(); ok {
		data.CacheKey = meta.Key
	}
	for _, m := range core.AnalysisModes() {
		data.Modes = append(data.Modes, modeButton{Mode: string(m), Label: m.Label()})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.WithError(err).Error("failed to render page")
	}
}
