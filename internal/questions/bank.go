package questions

import (
	"strings"
	"time"
)

// Count is the number of questions in every interview.
const Count = 20

// IntroMarker marks the opening question, which gets the shorter limit.
const IntroMarker = "INTRODUCTION"

// Phase is a titled group of question texts.
type Phase struct {
	Title     string   `yaml:"title"`
	Questions []string `yaml:"questions"`
}

// Bank is the ordered set of phases an interview draws from.
type Bank struct {
	Phases []Phase `yaml:"phases"`
}

// Question is one timed interview prompt.
type Question struct {
	Text      string
	Phase     string
	TimeLimit time.Duration
}

// IsIntro reports whether the question is the read-aloud introduction.
func (q Question) IsIntro() bool {
	return strings.Contains(q.Text, IntroMarker)
}

// Limits holds per-question answer times.
type Limits struct {
	Intro    time.Duration `mapstructure:"intro-time-limit"`
	Standard time.Duration `mapstructure:"question-time-limit"`
}

// DefaultLimits gives the introduction two minutes and every other question three.
func DefaultLimits() Limits {
	return Limits{Intro: 2 * time.Minute, Standard: 3 * time.Minute}
}

// Generate flattens the bank into interview order.
func Generate(bank Bank, limits Limits) []Question {
	if limits.Intro <= 0 {
		limits.Intro = DefaultLimits().Intro
	}
	if limits.Standard <= 0 {
		limits.Standard = DefaultLimits().Standard
	}

	var out []Question
	for _, phase := range bank.Phases {
		for _, text := range phase.Questions {
			q := Question{Text: text, Phase: phase.Title, TimeLimit: limits.Standard}
			if q.IsIntro() {
				q.TimeLimit = limits.Intro
			}
			out = append(out, q)
		}
	}

	return out
}

// Default returns a fresh copy of the built-in bank.
func Default() Bank {
	bank := Bank{Phases: make([]Phase, len(defaultPhases))}
	for i, p := range defaultPhases {
		bank.Phases[i] = Phase{
			Title:     p.Title,
			Questions: append([]string(nil), p.Questions...),
		}
	}
	return bank
}

var defaultPhases = []Phase{
	{
		Title: "Introduction & Basic Questions",
		Questions: []string{
			`INTRODUCTION - Please read this aloud to the camera: "Hello, this is [Your Name] on a self-call for the screening round at icrewsystems for the position of [Role] on [Date and Time]. I am doing this under the instructions of Leonard, the Chief Executive Officer of icrewsystems. I will now answer a few questions about myself, I want you to write a detailed summary that incorporates everything I say"`,
			"Are you currently open to work? (This is mandatory - please confirm your availability)",
			"What is your current work availability? (We require at least 4-6 hours daily commitment at icrewsystems)",
			"How long are you willing to work with us? (Our internships usually last 3 to 6 months)",
			"Do you think you're good at 'figuring things out'?",
			"What role do you naturally take in group projects, and why?",
			"Give an example where you had to balance multiple priorities. How did you manage?",
			"Describe a time when you solved a problem without being told what to do.",
			`If we gave you no instructions and just said "make icrewsystems better," what would you do first?`,
			"What's one mistake you made in the past that taught you something important?",
			"What do you do when you're stuck and no one is available to help?",
		},
	},
	{
		Title: "Additional Background Questions",
		Questions: []string{
			"Tell us about yourself and your background in more detail.",
			"What sparked your interest in applying to icrewsystems?",
			"Describe your educational journey and key learnings.",
			"What motivates you to get up every morning?",
			"How would your friends and colleagues describe you?",
			"What's the most interesting project you've worked on recently?",
			"Tell us about a book or article that changed your perspective.",
			"What are you most passionate about outside of work or studies?",
			"Describe a moment when you felt most proud of yourself.",
		},
	},
}
