package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/access"
	"github.com/spigell/self-interview/internal/checklist"
	"github.com/spigell/self-interview/internal/countdown"
	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/webhook"
	"github.com/spigell/self-interview/internal/wizard"
)

const (
	PromptContinue = "Continue"
	PromptQuit     = "Quit"
	PromptNext     = "Next question"
	PromptFinish   = "Finish interview"
	PromptPrevious = "Previous question"
	PromptRefresh  = "Refresh timers"
	PromptGuides   = "Troubleshooting guides"
	PromptBack     = "back"
	PromptRetry    = "Try again"
)

var errExit = errors.New("exit requested")

// confirmations are the button captions of the confirm-only stages.
var confirmations = map[wizard.Stage]string{
	wizard.StageBriefing:    "I Understand - Continue to Setup",
	wizard.StageDuration:    "I Have 30-40 Minutes - Start Setup",
	wizard.StageScreenShare: "Screen Sharing Started - Begin Questions",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Walk through the interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("link", "", "full invitation link, instead of --expire-at and --code")
	runCmd.Flags().String("expire-at", "", "encrypted expire_at value from the invitation")
	runCmd.Flags().String("code", "", "applicant code from the invitation")
	runCmd.Flags().BoolP("practice", "p", false, "log the submission instead of sending it")
}

// run is the interactive counterpart of serve.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup(logger.Stderr)

	if fd := os.Stdin.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		logger.Fatal("run needs an interactive terminal", zap.String("hint", "use the serve command instead"))
	}

	secret, err := resolveSecret(config)
	if err != nil {
		logger.Fatal(
			"loading access secret",
			zap.Error(err),
			zap.String("hint", "set SELF_INTERVIEW_SECRET_FILE environment variable or the 'secret-file' key in the configuration file"),
		)
	}

	req, err := invitation(cmd)
	if err != nil {
		logger.Fatal("reading invitation", zap.Error(err))
	}

	gate := access.NewDefault(secret, time.Now, logger.Named("gate"))
	if decision := gate.Evaluate(ctx, req); !decision.Granted {
		logger.Fatal("access denied", zap.Error(decision.Reason), zap.Strings("failed", decision.Failed))
	}

	qs, err := loadQuestions(config)
	if err != nil {
		logger.Fatal("loading questions", zap.Error(err))
	}

	var submitter wizard.Submitter = newWebhookClient(logger, config)
	if practice, _ := cmd.Flags().GetBool("practice"); practice {
		submitter = practiceSubmitter{logger: logger.Named("practice")}
	}

	w := newWizard(req.Code, qs, submitter, config, logger.Named("wizard"))
	defer w.Close()

	out := cmd.OutOrStdout()
	for {
		if err := step(ctx, out, w); err != nil {
			if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) {
				logger.Info("exiting", zap.Stringer("stage", w.State().Stage))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if w.State().Stage == wizard.StageComplete {
			fmt.Fprintln(out, "Thank you for completing the self-interview. We will review your submission and get back to you.")
			return
		}
	}
}

// invitation builds the gate request from the flags. Terminals never count
// as mobile devices.
func invitation(cmd *cobra.Command) (access.Request, error) {
	agent := app + "/" + version

	if link, _ := cmd.Flags().GetString("link"); link != "" {
		u, err := url.Parse(link)
		if err != nil {
			return access.Request{}, fmt.Errorf("parsing invitation link: %w", err)
		}
		return access.RequestFromQuery(u.Query().Get, agent), nil
	}

	expireAt, _ := cmd.Flags().GetString("expire-at")
	code, _ := cmd.Flags().GetString("code")

	return access.Request{
		ExpireAt:  access.NormalizeParam(expireAt),
		Code:      access.NormalizeParam(code),
		UserAgent: agent,
	}, nil
}

func step(ctx context.Context, out io.Writer, w *wizard.Wizard) error {
	st := w.State()
	fmt.Fprintf(out, "\nStep %d of %d: %s\n", st.Progress(), wizard.StageCount, st.Stage.Title())

	switch st.Stage {
	case wizard.StageBriefing, wizard.StageDuration, wizard.StageScreenShare:
		return confirm(w, confirmations[st.Stage])
	case wizard.StageChecklist:
		return checklistStep(out, w, st)
	case wizard.StageQuestions:
		return questionStep(out, w, st)
	case wizard.StageSubmission:
		return submissionStep(ctx, out, w, st)
	default:
		return fmt.Errorf("unexpected stage %s", st.Stage)
	}
}

func confirm(w *wizard.Wizard, caption string) error {
	prompt := promptui.Select{
		Label: "Proceed?",
		Items: []string{caption, PromptQuit},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action == PromptQuit {
		return errExit
	}

	_, err = w.Advance()
	return err
}

func checklistStep(out io.Writer, w *wizard.Wizard, st wizard.State) error {
	items := make([]string, 0, len(st.Checks)+3)
	for _, c := range st.Checks {
		items = append(items, checkLine(c))
	}
	if st.ChecklistComplete {
		items = append(items, PromptContinue)
	}
	items = append(items, PromptGuides, PromptQuit)

	prompt := promptui.Select{
		Label: fmt.Sprintf("System Verification Checklist (%d/%d)", countChecked(st.Checks), len(st.Checks)),
		Items: items,
		Size:  len(items),
	}

	i, action, err := prompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptQuit:
		return errExit
	case PromptGuides:
		return showGuides(out)
	case PromptContinue:
		_, err := w.Advance()
		return err
	}

	c := st.Checks[i]
	if !c.Enabled {
		fmt.Fprintln(out, "Complete the previous checks first.")
		return nil
	}

	_, err = w.ToggleCheck(c.ID)
	return err
}

func checkLine(c wizard.CheckState) string {
	mark := "[ ]"
	if c.Checked {
		mark = "[x]"
	}
	if !c.Enabled {
		return fmt.Sprintf("%s %s (locked)", mark, c.Label)
	}
	return fmt.Sprintf("%s %s", mark, c.Label)
}

func countChecked(checks []wizard.CheckState) int {
	n := 0
	for _, c := range checks {
		if c.Checked {
			n++
		}
	}
	return n
}

func showGuides(out io.Writer) error {
	var guides []checklist.Guide
	titles := make([]string, 0)
	for _, id := range checklist.IDs() {
		if g, ok := checklist.GuideFor(id); ok {
			guides = append(guides, g)
			titles = append(titles, g.Title)
		}
	}

	prompt := promptui.Select{
		Label: "Choose a guide and press ENTER",
		Items: append(titles, PromptBack),
	}

	i, selected, err := prompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	fmt.Fprintln(out, renderGuide(guides[i]))
	return nil
}

func renderGuide(g checklist.Guide) string {
	var b strings.Builder
	b.WriteString(g.Title)
	b.WriteString("\n")
	for _, s := range g.Sections {
		b.WriteString("\n" + s.Problem + "\n")
		for _, line := range s.Steps {
			b.WriteString("  - " + line + "\n")
		}
	}
	return b.String()
}

func questionStep(out io.Writer, w *wizard.Wizard, st wizard.State) error {
	fmt.Fprintln(out, questionHeader(st))
	fmt.Fprintf(out, "\n  %s\n\n", st.Question.Text)

	next := PromptNext
	if st.LastQuestion() {
		next = PromptFinish
	}
	items := []string{next}
	if st.QuestionIndex > 0 {
		items = append(items, PromptPrevious)
	}
	items = append(items, PromptRefresh, PromptQuit)

	prompt := promptui.Select{
		Label: "Answer out loud, then choose",
		Items: items,
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptNext, PromptFinish:
		return w.Next()
	case PromptPrevious:
		return w.Previous()
	case PromptQuit:
		return errExit
	}

	return nil
}

func questionHeader(st wizard.State) string {
	limit := "Time left: " + countdown.Format(st.QuestionRemaining)
	if st.QuestionLow {
		limit += " (hurry up)"
	}

	session := "Session: " + countdown.Format(st.SessionRemaining)
	if st.SessionExpired {
		session = "Session time is over. Please wrap up and submit."
	}

	return fmt.Sprintf("%s | Question %d of %d | %s | %s",
		st.Question.Phase, st.QuestionIndex+1, st.QuestionCount, limit, session)
}

func submissionStep(ctx context.Context, out io.Writer, w *wizard.Wizard, st wizard.State) error {
	fmt.Fprintln(out, "Stop the Fathom recording, then paste the recording link and the summary it generated.")

	link, err := ask("Fathom Recording Link", st.RecordingLink)
	if err != nil {
		return err
	}
	summary, err := ask("Fathom Summary", st.FathomSummary)
	if err != nil {
		return err
	}

	err = w.Submit(ctx, link, summary)
	switch {
	case err == nil:
		fmt.Fprintln(out, "Submitted Successfully")
		return nil
	case errors.Is(err, wizard.ErrMissingFields):
		fmt.Fprintln(out, "Please provide both the recording link and summary.")
		return nil
	case errors.Is(err, wizard.ErrClosed):
		return err
	}

	fmt.Fprintf(out, "Submission Failed: %v\n", err)

	prompt := promptui.Select{
		Label: "Your answers are kept",
		Items: []string{PromptRetry, PromptQuit},
	}
	_, action, perr := prompt.Run()
	if perr != nil {
		return perr
	}
	if action == PromptQuit {
		return errExit
	}
	return nil
}

func ask(label, current string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: current,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		},
	}
	return prompt.Run()
}

// practiceSubmitter accepts every submission without sending it.
type practiceSubmitter struct {
	logger *zap.Logger
}

func (p practiceSubmitter) Submit(_ context.Context, s webhook.Submission) (*webhook.Receipt, error) {
	p.logger.Info("practice submission",
		zap.String("recording_link", s.RecordingLink),
		zap.String("summary", logger.TruncateForLog(s.FathomSummary, 120)),
		zap.String(logger.FieldCode, logger.TruncateForLog(s.UniqueCode, 8)),
		zap.Int("summary_length", len(s.FathomSummary)),
	)
	return &webhook.Receipt{Status: "practice"}, nil
}
