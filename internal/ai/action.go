package ai

import (
	"fmt"
	"strings"

	_ "embed"
)

// Action is one of the three mutually exclusive evaluations a user can ask for.
type Action int

const (
	TellMeAboutResume Action = iota + 1
	ImproveSkills
	PercentageMatch
)

var (
	//go:embed prompts/tell_me_about_resume.md
	tellMeAboutResumePrompt string
	//go:embed prompts/improve_skills.md
	improveSkillsPrompt string
	//go:embed prompts/percentage_match.md
	percentageMatchPrompt string
)

// Actions lists every action in the order they are offered to the user.
func Actions() []Action {
	return []Action{TellMeAboutResume, ImproveSkills, PercentageMatch}
}

// ParseAction resolves a form value or a button label into an Action.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	for _, a := range Actions() {
		if strings.EqualFold(s, a.String()) || s == a.Label() {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %q", s)
}

func (a Action) Valid() bool {
	return a >= TellMeAboutResume && a <= PercentageMatch
}

// String is the form value of the action.
func (a Action) String() string {
	switch a {
	case TellMeAboutResume:
		return "tell-me-about-resume"
	case ImproveSkills:
		return "improve-skills"
	case PercentageMatch:
		return "percentage-match"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Label is the button text shown for the action.
func (a Action) Label() string {
	switch a {
	case TellMeAboutResume:
		return "Tell Me About the Resume"
	case ImproveSkills:
		return "How Can I Improve my Skills"
	case PercentageMatch:
		return "Percentage Match"
	default:
		return ""
	}
}

// Heading is displayed above the evaluation text.
func (a Action) Heading() string {
	if a == ImproveSkills {
		return "Skill Improvement Suggestions"
	}
	return "The Response is"
}

// Prompt returns the fixed instruction sent with the action.
func (a Action) Prompt() string {
	switch a {
	case TellMeAboutResume:
		return tellMeAboutResumePrompt
	case ImproveSkills:
		return improveSkillsPrompt
	case PercentageMatch:
		return percentageMatchPrompt
	default:
		return ""
	}
}
