package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/countdown"
	"github.com/spigell/self-interview/internal/questions"
	"github.com/spigell/self-interview/internal/webhook"
)

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

func idleTicks(time.Duration) countdown.Ticker { return idleTicker{} }

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []webhook.Submission
	err   error

	entered chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, s webhook.Submission) (*webhook.Receipt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	if err != nil {
		return nil, err
	}
	return &webhook.Receipt{Message: "ok"}, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestWizard(t *testing.T, sub Submitter, cfg Config, opts ...Option) *Wizard {
	t.Helper()

	qs := questions.Generate(questions.Default(), questions.DefaultLimits())
	w := New("applicant-code", qs, sub, cfg, append([]Option{WithTicker(idleTicks)}, opts...)...)
	t.Cleanup(w.Close)
	return w
}

func mustAdvance(t *testing.T, w *Wizard, want Stage) {
	t.Helper()

	got, err := w.Advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got != want {
		t.Fatalf("expected stage %s, got %s", want, got)
	}
}

func completeChecklist(t *testing.T, w *Wizard) {
	t.Helper()

	for _, id := range checklist.IDs() {
		changed, err := w.ToggleCheck(id)
		if err != nil || !changed {
			t.Fatalf("toggle %s: changed=%v err=%v", id, changed, err)
		}
	}
}

func reachQuestions(t *testing.T, w *Wizard) {
	t.Helper()

	mustAdvance(t, w, StageDuration)
	mustAdvance(t, w, StageChecklist)
	completeChecklist(t, w)
	mustAdvance(t, w, StageScreenShare)
	mustAdvance(t, w, StageQuestions)
}

func reachSubmission(t *testing.T, w *Wizard) {
	t.Helper()

	reachQuestions(t, w)
	for i := 0; i < questions.Count; i++ {
		if err := w.Next(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	if st := w.State(); st.Stage != StageSubmission {
		t.Fatalf("expected submission stage, got %s", st.Stage)
	}
}

func TestStageFlow(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{})

	if st := w.State(); st.Stage != StageBriefing || st.SessionActive {
		t.Fatalf("unexpected initial state: %+v", st)
	}

	mustAdvance(t, w, StageDuration)
	mustAdvance(t, w, StageChecklist)

	// Leaving an incomplete checklist is a silent no-op.
	mustAdvance(t, w, StageChecklist)
	if w.State().SessionActive {
		t.Fatal("session timer must not start before the checklist is complete")
	}

	completeChecklist(t, w)
	mustAdvance(t, w, StageScreenShare)

	st := w.State()
	if !st.SessionActive || st.SessionRemaining != DefaultSessionDuration {
		t.Fatalf("expected a running 30 minute session timer, got %+v", st)
	}

	mustAdvance(t, w, StageQuestions)
	st = w.State()
	if st.QuestionIndex != 0 || st.QuestionRemaining != 2*time.Minute {
		t.Fatalf("expected the intro question armed at 2 minutes, got index=%d remaining=%s",
			st.QuestionIndex, st.QuestionRemaining)
	}

	if _, err := w.Advance(); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected ErrWrongStage, got %v", err)
	}
}

func TestSkipScreenShareStage(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{SkipScreenShareStage: true})
	mustAdvance(t, w, StageDuration)
	mustAdvance(t, w, StageChecklist)
	completeChecklist(t, w)
	mustAdvance(t, w, StageQuestions)

	if !w.State().SessionActive {
		t.Fatal("expected session timer to be started")
	}
}

func TestChecklistOrderingThroughWizard(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{})

	if _, err := w.ToggleCheck(checklist.Fathom); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected ErrWrongStage before the checklist, got %v", err)
	}

	mustAdvance(t, w, StageDuration)
	mustAdvance(t, w, StageChecklist)

	if changed, _ := w.ToggleCheck(checklist.Meet); changed {
		t.Fatal("expected out of order toggle to be ignored")
	}
	if changed, _ := w.ToggleCheck(checklist.Fathom); !changed {
		t.Fatal("expected first toggle to apply")
	}

	var enabled []bool
	for _, c := range w.State().Checks {
		enabled = append(enabled, c.Enabled)
	}
	want := []bool{true, true, false, false, false, false, false, false}
	if diff := cmp.Diff(want, enabled); diff != "" {
		t.Fatalf("enabled mismatch (-want +got):\n%s", diff)
	}
}

func TestQuestionNavigation(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{})
	reachQuestions(t, w)

	if err := w.Previous(); err != nil {
		t.Fatalf("previous at first question: %v", err)
	}
	if st := w.State(); st.QuestionIndex != 0 || st.Stage != StageQuestions {
		t.Fatalf("expected previous at 0 to be a no-op, got %+v", st)
	}

	if err := w.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	st := w.State()
	if st.QuestionIndex != 1 || st.QuestionRemaining != 3*time.Minute {
		t.Fatalf("expected question 2 at 3 minutes, got index=%d remaining=%s", st.QuestionIndex, st.QuestionRemaining)
	}

	if err := w.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if st := w.State(); st.QuestionIndex != 0 || st.QuestionRemaining != 2*time.Minute {
		t.Fatalf("expected intro re-armed, got index=%d remaining=%s", st.QuestionIndex, st.QuestionRemaining)
	}

	for i := 0; i < questions.Count-1; i++ {
		if err := w.Next(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	st = w.State()
	if st.QuestionIndex != questions.Count-1 || !st.LastQuestion() {
		t.Fatalf("expected last question, got %d", st.QuestionIndex)
	}

	if err := w.Next(); err != nil {
		t.Fatalf("next past last: %v", err)
	}
	if st := w.State(); st.Stage != StageSubmission {
		t.Fatalf("expected submission stage, got %s", st.Stage)
	}

	// The transition happens exactly once.
	if err := w.Next(); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected ErrWrongStage, got %v", err)
	}
	if err := w.Previous(); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected ErrWrongStage, got %v", err)
	}
}

func TestQuestionLowFlag(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{LowTimeThreshold: 150 * time.Second})
	reachQuestions(t, w)

	if !w.State().QuestionLow {
		t.Fatal("expected 120s intro to be below a 150s threshold")
	}
	if err := w.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if w.State().QuestionLow {
		t.Fatal("expected 180s question to be above a 150s threshold")
	}
}

func TestSubmitRequiresBothFields(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	w := newTestWizard(t, sub, Config{})
	reachSubmission(t, w)

	tests := []struct {
		link, summary string
	}{
		{"", ""},
		{"https://fathom.video/share/x", ""},
		{"", "summary"},
		{"   ", "summary"},
		{"https://fathom.video/share/x", "\n\t"},
	}
	for _, tt := range tests {
		if err := w.Submit(context.Background(), tt.link, tt.summary); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("link=%q summary=%q: expected ErrMissingFields, got %v", tt.link, tt.summary, err)
		}
	}

	if sub.count() != 0 {
		t.Fatalf("expected no network calls, got %d", sub.count())
	}
	if w.State().Stage != StageSubmission {
		t.Fatal("expected to stay on the submission stage")
	}
}

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	sub := &fakeSubmitter{}
	w := newTestWizard(t, sub, Config{}, WithClock(clock))
	reachSubmission(t, w)

	if err := w.Submit(context.Background(), " https://fathom.video/share/x ", "Went well."); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if sub.count() != 1 {
		t.Fatalf("expected exactly one call, got %d", sub.count())
	}
	want := webhook.Submission{
		RecordingLink: "https://fathom.video/share/x",
		FathomSummary: "Went well.",
		UniqueCode:    "applicant-code",
	}
	if diff := cmp.Diff(want, sub.calls[0]); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}

	st := w.State()
	if st.Stage != StageComplete || !st.Celebrating || st.SessionActive {
		t.Fatalf("unexpected completion state: %+v", st)
	}

	now = now.Add(celebrationWindow)
	if w.State().Celebrating {
		t.Fatal("expected celebration to end after its window")
	}

	if err := w.Submit(context.Background(), "a", "b"); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected ErrWrongStage after completion, got %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("expected no further calls, got %d", sub.count())
	}
}

func TestSubmitFailureStaysAndAllowsRetry(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{err: &webhook.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}}
	w := newTestWizard(t, sub, Config{})
	reachSubmission(t, w)

	err := w.Submit(context.Background(), "link", "summary")
	var statusErr *webhook.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}

	st := w.State()
	if st.Stage != StageSubmission || st.RecordingLink != "link" || st.FathomSummary != "summary" || st.Submitting {
		t.Fatalf("unexpected state after failure: %+v", st)
	}

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()

	if err := w.Submit(context.Background(), "link", "summary"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sub.count() != 2 {
		t.Fatalf("expected two calls in total, got %d", sub.count())
	}
}

func TestSubmitInFlightGuard(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	w := newTestWizard(t, sub, Config{})
	reachSubmission(t, w)

	done := make(chan error, 1)
	go func() {
		done <- w.Submit(context.Background(), "link", "summary")
	}()

	<-sub.entered
	if !w.State().Submitting {
		t.Fatal("expected snapshot to report a pending submission")
	}
	if err := w.Submit(context.Background(), "link", "summary"); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("expected exactly one call, got %d", sub.count())
	}
}

func TestCloseStopsEverything(t *testing.T) {
	t.Parallel()

	w := newTestWizard(t, &fakeSubmitter{}, Config{})
	reachQuestions(t, w)

	w.Close()
	w.Close()

	if _, err := w.Advance(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := w.Next(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if !w.State().Closed {
		t.Fatal("expected snapshot to report closed")
	}
}

func TestStageStrings(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for s := StageBriefing; s <= StageComplete; s++ {
		if seen[s.String()] {
			t.Fatalf("duplicate stage name %q", s)
		}
		seen[s.String()] = true
	}
	if len(seen) != StageCount {
		t.Fatalf("expected %d stages, got %d", StageCount, len(seen))
	}
	if Stage(42).String() != "stage(42)" {
		t.Fatalf("unexpected name for unknown stage: %q", Stage(42))
	}
}
