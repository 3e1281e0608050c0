package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// Scenario is a scripted sequence of detector signals and learner actions.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one instruction.
type Step struct {
	Emotion      *string         `yaml:"emotion,omitempty"`
	Advance      time.Duration   `yaml:"advance,omitempty"`
	Action       string          `yaml:"action,omitempty"`
	Draft        *string         `yaml:"draft,omitempty"`
	Send         *string         `yaml:"send,omitempty"`
	Intervention string          `yaml:"intervention,omitempty"`
	Expect       chat.Visibility `yaml:"expect,omitempty"`
}

var actions = map[string]bool{"open": true, "toggle": true, "accept": true, "close": true}

func (s Step) kind() string {
	switch {
	case s.Emotion != nil:
		return "emotion"
	case s.Advance > 0:
		return "advance"
	case s.Action != "":
		return "action"
	case s.Draft != nil:
		return "draft"
	case s.Send != nil:
		return "send"
	case s.Intervention != "":
		return "intervention"
	case s.Expect != "":
		return "expect"
	default:
		return ""
	}
}

func (s Step) validate() error {
	set := 0
	for _, present := range []bool{
		s.Emotion != nil, s.Advance != 0, s.Action != "", s.Draft != nil,
		s.Send != nil, s.Intervention != "", s.Expect != "",
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("step must set exactly one instruction, got %d", set)
	}
	if s.Advance < 0 {
		return fmt.Errorf("advance must be positive, got %s", s.Advance)
	}
	if s.Action != "" && !actions[s.Action] {
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if s.Expect != "" {
		switch s.Expect {
		case chat.VisibilityClosed, chat.VisibilityConfirmPrompt, chat.VisibilityChatOpen:
		default:
			return fmt.Errorf("unknown visibility %q", s.Expect)
		}
	}
	return nil
}

// LoadScenario decodes and validates a YAML scenario.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario is empty")
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &sc, nil
}
