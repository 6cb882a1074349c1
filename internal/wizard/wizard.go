// Package wizard drives one applicant through the interview stages.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/countdown"
	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/questions"
	"github.com/spigell/self-interview/internal/webhook"
)

const (
	DefaultSessionDuration  = 30 * time.Minute
	DefaultLowTimeThreshold = 55 * time.Second

	celebrationWindow = 3 * time.Second
)

var (
	ErrWrongStage     = errors.New("action not available at this stage")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrMissingFields  = errors.New("please provide both the recording link and summary")
	ErrClosed         = errors.New("interview session is closed")
)

// Submitter delivers a finished interview.
type Submitter interface {
	Submit(ctx context.Context, s webhook.Submission) (*webhook.Receipt, error)
}

// Config tunes a wizard.
type Config struct {
	SessionDuration      time.Duration `mapstructure:"session-duration"`
	LowTimeThreshold     time.Duration `mapstructure:"low-time-threshold"`
	SkipScreenShareStage bool          `mapstructure:"skip-screen-share-stage"`
}

func (c Config) withDefaults() Config {
	if c.SessionDuration <= 0 {
		c.SessionDuration = DefaultSessionDuration
	}
	if c.LowTimeThreshold <= 0 {
		c.LowTimeThreshold = DefaultLowTimeThreshold
	}
	return c
}

type Option func(*Wizard)

// WithTicker replaces the one-second tick source of both timers.
func WithTicker(f countdown.TickerFunc) Option {
	return func(w *Wizard) {
		w.sessionTimer = countdown.New(f)
		w.questionTimer = countdown.New(f)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Wizard) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// Wizard is safe for concurrent use. The submitter is called without the
// lock held so snapshots stay available while a submission is pending.
type Wizard struct {
	mu sync.Mutex

	cfg       Config
	code      string
	questions []questions.Question
	checks    *checklist.List
	submitter Submitter
	logger    *zap.Logger
	now       func() time.Time

	sessionTimer  *countdown.Timer
	questionTimer *countdown.Timer

	stage          Stage
	index          int
	sessionStarted bool
	submitting     bool
	recordingLink  string
	summary        string
	completedAt    time.Time
	closed         bool
}

// New starts a wizard at the briefing stage. qs must not be empty.
func New(code string, qs []questions.Question, submitter Submitter, cfg Config, opts ...Option) *Wizard {
	w := &Wizard{
		cfg:           cfg.withDefaults(),
		code:          code,
		questions:     append([]questions.Question(nil), qs...),
		checks:        checklist.New(),
		submitter:     submitter,
		logger:        zap.NewNop(),
		now:           time.Now,
		sessionTimer:  countdown.New(nil),
		questionTimer: countdown.New(nil),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Advance moves past a confirmation stage and returns the resulting stage.
// Leaving the checklist before every item is checked changes nothing.
func (w *Wizard) Advance() (Stage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.stage, ErrClosed
	}

	switch w.stage {
	case StageBriefing:
		w.setStage(StageDuration)
	case StageDuration:
		w.setStage(StageChecklist)
	case StageChecklist:
		if !w.checks.Complete() {
			w.logger.Debug("checklist incomplete", zap.Int("checked", w.checks.CheckedCount()))
			return w.stage, nil
		}
		w.sessionTimer.Start(w.cfg.SessionDuration)
		w.sessionStarted = true
		if w.cfg.SkipScreenShareStage {
			w.enterQuestions()
		} else {
			w.setStage(StageScreenShare)
		}
	case StageScreenShare:
		if !w.sessionTimer.Running() && !w.sessionTimer.Expired() {
			w.sessionTimer.Start(w.cfg.SessionDuration)
		}
		w.sessionStarted = true
		w.enterQuestions()
	default:
		return w.stage, fmt.Errorf("%w: cannot advance from %s", ErrWrongStage, w.stage)
	}

	return w.stage, nil
}

// ToggleCheck flips a checklist item, honoring the completion order. It
// reports whether the list changed.
func (w *Wizard) ToggleCheck(id checklist.CheckID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, ErrClosed
	}
	if w.stage != StageChecklist {
		return false, fmt.Errorf("%w: checks are only editable during %s", ErrWrongStage, StageChecklist)
	}

	changed := w.checks.ToggleID(id)
	w.logger.Debug("check toggled",
		zap.String(logger.FieldCheck, string(id)),
		zap.Bool("changed", changed),
		zap.Int("checked", w.checks.CheckedCount()),
	)

	return changed, nil
}

// Next moves to the following question, or to the submission stage after
// the last one.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireQuestions(); err != nil {
		return err
	}

	if w.index >= len(w.questions)-1 {
		w.questionTimer.Stop()
		w.setStage(StageSubmission)
		return nil
	}

	w.index++
	w.armQuestion()

	return nil
}

// Previous moves back one question. It does nothing on the first question.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireQuestions(); err != nil {
		return err
	}

	if w.index == 0 {
		return nil
	}

	w.index--
	w.armQuestion()

	return nil
}

func (w *Wizard) requireQuestions() error {
	if w.closed {
		return ErrClosed
	}
	if w.stage != StageQuestions {
		return fmt.Errorf("%w: not answering questions", ErrWrongStage)
	}
	return nil
}

// Submit sends the recording link and summary once. Blank fields fail with
// ErrMissingFields before any network call. On failure the wizard stays on
// the submission stage and the entered values are kept.
func (w *Wizard) Submit(ctx context.Context, recordingLink, summary string) error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.stage != StageSubmission {
		w.mu.Unlock()
		return fmt.Errorf("%w: nothing to submit yet", ErrWrongStage)
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}

	w.recordingLink, w.summary = recordingLink, summary
	link, text := strings.TrimSpace(recordingLink), strings.TrimSpace(summary)
	if link == "" || text == "" {
		w.mu.Unlock()
		return ErrMissingFields
	}

	w.submitting = true
	submission := webhook.Submission{RecordingLink: link, FathomSummary: text, UniqueCode: w.code}
	w.mu.Unlock()

	receipt, err := w.submitter.Submit(ctx, submission)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.submitting = false
	if err != nil {
		w.logger.Warn("submission failed", zap.Error(err))
		return fmt.Errorf("submitting interview: %w", err)
	}

	if receipt != nil && receipt.Message != "" {
		w.logger.Debug("webhook receipt", zap.String("message", receipt.Message))
	}

	w.completedAt = w.now()
	w.setStage(StageComplete)
	w.stopTimers()

	return nil
}

// Close stops both timers. Further actions fail with ErrClosed.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.stopTimers()
	w.logger.Debug("wizard closed", zap.String(logger.FieldStage, w.stage.String()))
}

func (w *Wizard) enterQuestions() {
	w.index = 0
	w.setStage(StageQuestions)
	w.armQuestion()
}

func (w *Wizard) armQuestion() {
	w.questionTimer.Start(w.questions[w.index].TimeLimit)
	w.logger.Debug("question armed",
		zap.Int("index", w.index),
		zap.Duration("limit", w.questions[w.index].TimeLimit),
	)
}

func (w *Wizard) setStage(s Stage) {
	w.logger.Info("stage changed",
		zap.String("from", w.stage.String()),
		zap.String(logger.FieldStage, s.String()),
	)
	w.stage = s
}

func (w *Wizard) stopTimers() {
	w.sessionTimer.Stop()
	w.questionTimer.Stop()
}
