package chat

import (
	"fmt"
	"regexp"
)

// Mode selects how the completion backend should answer a prompt.
type Mode string

const (
	ModeSimple        Mode = "simple"
	ModeVideoSummary  Mode = "video-summary"
	ModeExplainSimply Mode = "explain-simply"
	ModeStory         Mode = "story"
	ModeQuiz          Mode = "quiz"
	ModeResources     Mode = "resources"
)

// Modes lists every mode the completion call accepts.
func Modes() []Mode {
	return []Mode{ModeSimple, ModeVideoSummary, ModeExplainSimply, ModeStory, ModeQuiz, ModeResources}
}

var videoLinkPattern = regexp.MustCompile(`(?i)\b(?:youtube\.com|youtu\.be)\b`)

// DetectMode picks video-summary for text carrying a video link and simple otherwise.
func DetectMode(text string) Mode {
	if videoLinkPattern.MatchString(text) {
		return ModeVideoSummary
	}
	return ModeSimple
}

// ParseMode validates a mode tag. The original overlay used "im5" and
// "youtube" for two of them; both are still accepted.
func ParseMode(raw string) (Mode, error) {
	switch raw {
	case "im5":
		return ModeExplainSimply, nil
	case "youtube":
		return ModeVideoSummary, nil
	}
	for _, m := range Modes() {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported mode %q", raw)
}

// Intervention reports whether the mode is driven by an auxiliary action button
// rather than by a typed message.
func (m Mode) Intervention() bool {
	switch m {
	case ModeExplainSimply, ModeStory, ModeQuiz, ModeResources:
		return true
	default:
		return false
	}
}
