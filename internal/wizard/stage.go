package wizard

import "fmt"

// Stage is a step of the interview wizard.
type Stage int

const (
	StageBriefing Stage = iota
	StageDuration
	StageChecklist
	StageScreenShare
	StageQuestions
	StageSubmission
	StageComplete
)

// StageCount is the number of stages.
const StageCount = int(StageComplete) + 1

func (s Stage) String() string {
	switch s {
	case StageBriefing:
		return "briefing"
	case StageDuration:
		return "duration"
	case StageChecklist:
		return "checklist"
	case StageScreenShare:
		return "screen-share"
	case StageQuestions:
		return "questions"
	case StageSubmission:
		return "submission"
	case StageComplete:
		return "complete"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Title is the heading shown for the stage.
func (s Stage) Title() string {
	switch s {
	case StageBriefing:
		return "Welcome to Stage 0"
	case StageDuration:
		return "Time Duration & Setup"
	case StageChecklist:
		return "System Setup & Verification"
	case StageScreenShare:
		return "Start Screen Sharing"
	case StageQuestions:
		return "Interview Questions"
	case StageSubmission:
		return "Stop Recording & Submit"
	case StageComplete:
		return "Interview Submitted Successfully!"
	}
	return s.String()
}
