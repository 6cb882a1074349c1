package wizard

import (
	"time"

	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/questions"
)

// CheckState is a checklist item as the applicant sees it.
type CheckState struct {
	checklist.Item
	Enabled bool
	Guide   *checklist.Guide
}

// State is a consistent copy of everything a view needs.
type State struct {
	Stage Stage
	Code  string

	Checks            []CheckState
	ChecklistComplete bool

	QuestionIndex int
	QuestionCount int
	Question      questions.Question

	SessionActive     bool
	SessionRemaining  time.Duration
	SessionExpired    bool
	QuestionRemaining time.Duration
	QuestionLow       bool

	RecordingLink string
	FathomSummary string
	Submitting    bool
	Celebrating   bool
	Closed        bool
}

// Progress is the 1-based position among the stages.
func (s State) Progress() int {
	return int(s.Stage) + 1
}

// LastQuestion reports whether the current question is the final one.
func (s State) LastQuestion() bool {
	return s.QuestionIndex == s.QuestionCount-1
}

// State returns a snapshot of the wizard.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Stage:             w.stage,
		Code:              w.code,
		ChecklistComplete: w.checks.Complete(),
		QuestionIndex:     w.index,
		QuestionCount:     len(w.questions),
		SessionActive:     w.sessionStarted && w.stage != StageComplete,
		SessionRemaining:  w.sessionTimer.Remaining(),
		SessionExpired:    w.sessionTimer.Expired(),
		RecordingLink:     w.recordingLink,
		FathomSummary:     w.summary,
		Submitting:        w.submitting,
		Closed:            w.closed,
	}

	for i, item := range w.checks.Items() {
		cs := CheckState{Item: item, Enabled: w.checks.Enabled(i)}
		if guide, ok := checklist.GuideFor(item.ID); ok {
			cs.Guide = &guide
		}
		st.Checks = append(st.Checks, cs)
	}

	if w.index < len(w.questions) {
		st.Question = w.questions[w.index]
	}

	if w.stage == StageQuestions {
		st.QuestionRemaining = w.questionTimer.Remaining()
		st.QuestionLow = st.QuestionRemaining < w.cfg.LowTimeThreshold
	}

	if w.stage == StageComplete {
		st.Celebrating = w.now().Sub(w.completedAt) < celebrationWindow
	}

	return st
}
