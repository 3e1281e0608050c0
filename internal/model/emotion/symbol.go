package emotion

import (
	"errors"
	"strings"
)

// Symbol is the discrete affect label produced by the emotion detector.
type Symbol string

const (
	None            Symbol = ""
	Confused        Symbol = "Confused"
	Frustrated      Symbol = "Frustrated"
	Sleepy          Symbol = "Sleepy"
	Bored           Symbol = "Bored"
	Engaged         Symbol = "Engaged"
	Happy           Symbol = "Happy"
	Unknown         Symbol = "Unknown"
	FaceNotDetected Symbol = "Face Not Detected"
)

// ErrUnknownSymbol is returned by Parse for labels outside the closed set.
var ErrUnknownSymbol = errors.New("unknown emotion symbol")

// All lists every observable symbol in display order. None is excluded.
func All() []Symbol {
	return []Symbol{Confused, Frustrated, Sleepy, Bored, Engaged, Happy, Unknown, FaceNotDetected}
}

var emojiBySymbol = map[Symbol]string{
	Confused:        "🤔",
	Frustrated:      "😫",
	Sleepy:          "💤",
	Bored:           "😐",
	Engaged:         "🎯",
	Happy:           "😊",
	Unknown:         "❓",
	FaceNotDetected: "👤",
}

// Parse accepts the detector's word labels (case-insensitive, spaces,
// underscores or dashes optional) as well as the emoji the overlay displays.
func Parse(raw string) (Symbol, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return None, nil
	}

	for sym, emoji := range emojiBySymbol {
		if value == emoji {
			return sym, nil
		}
	}

	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(value))
	switch normalized {
	case "none", "null":
		return None, nil
	case "confused":
		return Confused, nil
	case "frustrated":
		return Frustrated, nil
	case "sleepy":
		return Sleepy, nil
	case "bored":
		return Bored, nil
	case "engaged":
		return Engaged, nil
	case "happy":
		return Happy, nil
	case "unknown":
		return Unknown, nil
	case "facenotdetected":
		return FaceNotDetected, nil
	default:
		return None, ErrUnknownSymbol
	}
}

// IsNegative reports whether the symbol belongs to the subset that warrants
// proactive assistance.
func (s Symbol) IsNegative() bool {
	switch s {
	case Confused, Frustrated, Sleepy, Bored:
		return true
	default:
		return false
	}
}

// Emoji returns the glyph shown next to the label. None renders as the
// neutral smiley the header shows before any detection.
func (s Symbol) Emoji() string {
	if s == None {
		return "😊"
	}
	if emoji, ok := emojiBySymbol[s]; ok {
		return emoji
	}
	return "❓"
}

// Label returns the display label, "No Detection" for None.
func (s Symbol) Label() string {
	if s == None {
		return "No Detection"
	}
	return string(s)
}
