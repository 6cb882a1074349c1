// Package web serves the access gate and the interview wizard over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/access"
	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/webhook"
	"github.com/spigell/self-interview/internal/wizard"
)

// Links are the external pages the views point to.
type Links struct {
	Apply         string `mapstructure:"apply"`
	BriefingVideo string `mapstructure:"briefing-video"`
	Extension     string `mapstructure:"extension"`
	MicTest       string `mapstructure:"mic-test"`
	Meet          string `mapstructure:"meet"`
}

func DefaultLinks() Links {
	return Links{
		Apply:         "https://icrewsystems.com/careers/current-openings",
		BriefingVideo: "https://www.youtube-nocookie.com/embed/5uEuRrCwjOc?rel=0&modestbranding=1&autoplay=1",
		Extension:     "https://chromewebstore.google.com/detail/fathom-ai-note-taker-for/nhocmlminaplaendbabmoemehbpgdemn",
		MicTest:       "https://mictests.com/",
		Meet:          "https://meet.google.com",
	}
}

type Config struct {
	Links        Links
	SubmitLimit  int
	SubmitWindow time.Duration
}

type Server struct {
	gate     *access.Gate
	sessions *Registry
	limiter  *submitLimiter
	views    *views
	links    Links
	logger   *zap.Logger
	router   chi.Router
}

func New(cfg Config, gate *access.Gate, sessions *Registry, l *zap.Logger) (*Server, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if cfg.SubmitWindow <= 0 {
		cfg.SubmitWindow = time.Minute
	}

	v, err := loadViews()
	if err != nil {
		return nil, err
	}

	s := &Server{
		gate:     gate,
		sessions: sessions,
		limiter:  newSubmitLimiter(cfg.SubmitLimit, cfg.SubmitWindow),
		views:    v,
		links:    cfg.Links,
		logger:   l,
	}
	s.router = s.routes()
	sessions.OnRemove(s.limiter.Forget)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"sessions": s.sessions.Len()})
	})

	r.Get("/interview", s.handleEnter)
	r.Get("/interview/{id}", s.handleInterview)
	r.Post("/interview/{id}/advance", s.handleAdvance)
	r.Post("/interview/{id}/checks/{check}", s.handleToggle)
	r.Post("/interview/{id}/questions/next", s.handleNext)
	r.Post("/interview/{id}/questions/previous", s.handlePrevious)
	r.Post("/interview/{id}/submit", s.handleSubmit)

	r.Get("/api/interview/{id}", s.handleSnapshot)
	r.Delete("/api/interview/{id}", s.handleClose)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusNotFound, "notfound.html", page{Title: "Not Found"})
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", page{Title: "Self Interview"})
}

// handleEnter runs the gate against the invitation and opens a session.
func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	req := access.RequestFromQuery(r.URL.Query().Get, r.UserAgent())

	decision := s.gate.Evaluate(r.Context(), req)
	if !decision.Granted {
		d := &denial{
			Title:   "Access Denied",
			Message: "This interview link has expired or is invalid. Please contact the recruitment team for a new link.",
		}
		if decision.Denied(access.ErrUnsupportedDevice) {
			d = &denial{
				Title:   "Desktop Required",
				Message: "This self-interview must be completed on a desktop or laptop computer. Please access this link from a desktop device.",
			}
		}
		s.render(w, http.StatusForbidden, "denied.html", page{Title: d.Title, Denial: d})
		return
	}

	sess := s.sessions.Create(req.Code)
	http.Redirect(w, r, interviewPath(sess.ID), http.StatusSeeOther)
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	st := sess.Wizard.State()
	s.render(w, http.StatusOK, "interview.html", page{
		Title:     st.Stage.Title(),
		Toast:     sess.PopFlash(),
		SessionID: sess.ID,
		State:     st,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error {
		_, err := sess.Wizard.Advance()
		return err
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := checklist.Parse(chi.URLParam(r, "check"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.act(w, r, func(sess *Session) error {
		_, err := sess.Wizard.ToggleCheck(id)
		return err
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Wizard.Next() })
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Wizard.Previous() })
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error {
		link, summary := r.PostFormValue("recordingLink"), r.PostFormValue("fathomSummary")

		// Only attempts that can reach the webhook count against the limit.
		if strings.TrimSpace(link) != "" && strings.TrimSpace(summary) != "" {
			if allowed, wait := s.limiter.Allow(sess.ID); !allowed {
				sess.SetFlash(Toast{
					Title:       "Too Many Attempts",
					Message:     fmt.Sprintf("Please wait %d seconds before submitting again.", int(wait.Round(time.Second)/time.Second)),
					Destructive: true,
				})
				return nil
			}
		}

		// An aborted page load must not abandon a delivery already in flight;
		// the webhook client timeout still bounds the call.
		err := sess.Wizard.Submit(context.WithoutCancel(r.Context()), link, summary)
		switch {
		case err == nil:
			s.limiter.Forget(sess.ID)
			sess.SetFlash(Toast{
				Title:   "Submitted Successfully",
				Message: "Your interview recording and summary have been sent.",
			})
		case errors.Is(err, wizard.ErrMissingFields):
			sess.SetFlash(Toast{
				Title:       "Missing Information",
				Message:     "Please provide both the recording link and summary.",
				Destructive: true,
			})
		case errors.Is(err, wizard.ErrSubmitInFlight):
			sess.SetFlash(Toast{
				Title:   "Submission In Progress",
				Message: "Your interview is being sent. Please wait.",
			})
		case errors.Is(err, wizard.ErrWrongStage), errors.Is(err, wizard.ErrClosed):
			return err
		default:
			sess.SetFlash(Toast{
				Title:       "Submission Failed",
				Message:     "Error: " + submitFailure(err),
				Destructive: true,
			})
		}
		return nil
	})
}

// act runs a wizard action and redirects back to the interview page.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(*Session) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	err := fn(sess)
	switch {
	case errors.Is(err, wizard.ErrClosed):
		s.sessions.Remove(sess.ID)
		s.renderNotFound(w)
		return
	case errors.Is(err, wizard.ErrWrongStage):
		// Stale form from a double click or the back button.
		s.logger.Debug("ignored action", zap.String(logger.FieldSession, sess.ID), zap.Error(err))
	case err != nil:
		s.logger.Error("wizard action failed", zap.String(logger.FieldSession, sess.ID), zap.Error(err))
	}

	http.Redirect(w, r, interviewPath(sess.ID), http.StatusSeeOther)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.renderNotFound(w)
		return nil, false
	}
	return sess, true
}

func (s *Server) renderNotFound(w http.ResponseWriter) {
	s.render(w, http.StatusNotFound, "notfound.html", page{Title: "Session Not Found"})
}

// snapshot is the JSON view of a session.
type snapshot struct {
	SessionID         string `json:"sessionId"`
	Stage             int    `json:"stage"`
	StageName         string `json:"stageName"`
	ChecksCompleted   int    `json:"checksCompleted"`
	QuestionIndex     int    `json:"questionIndex"`
	QuestionCount     int    `json:"questionCount"`
	Question          string `json:"question,omitempty"`
	Phase             string `json:"phase,omitempty"`
	SessionActive     bool   `json:"sessionActive"`
	SessionRemaining  int    `json:"sessionRemaining"`
	SessionExpired    bool   `json:"sessionExpired"`
	QuestionRemaining int    `json:"questionRemaining"`
	QuestionLow       bool   `json:"questionLow"`
	Submitting        bool   `json:"submitting"`
	Celebrating       bool   `json:"celebrating"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newSnapshot(id string, st wizard.State) snapshot {
	snap := snapshot{
		SessionID:         id,
		Stage:             int(st.Stage),
		StageName:         st.Stage.String(),
		QuestionIndex:     st.QuestionIndex,
		QuestionCount:     st.QuestionCount,
		SessionActive:     st.SessionActive,
		SessionRemaining:  int(st.SessionRemaining / time.Second),
		SessionExpired:    st.SessionExpired,
		QuestionRemaining: int(st.QuestionRemaining / time.Second),
		QuestionLow:       st.QuestionLow,
		Submitting:        st.Submitting,
		Celebrating:       st.Celebrating,
	}
	for _, c := range st.Checks {
		if c.Checked {
			snap.ChecksCompleted++
		}
	}
	if st.Stage == wizard.StageQuestions {
		snap.Question = st.Question.Text
		snap.Phase = st.Question.Phase
	}
	return snap
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiError{Code: "SESSION_NOT_FOUND", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, newSnapshot(id, sess.Wizard.State()))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Remove(id) {
		writeJSON(w, http.StatusNotFound, apiError{Code: "SESSION_NOT_FOUND", Message: ErrSessionNotFound.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func submitFailure(err error) string {
	var statusErr *webhook.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP error! Status: %d", statusErr.StatusCode)
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

func interviewPath(id string) string {
	return "/interview/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
