package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(strings.NewReader(`
name: demo
steps:
  - emotion: Confused
  - advance: 1500ms
  - action: accept
  - send: "hello"
  - expect: chat-open
`))
	require.NoError(t, err)

	assert.Equal(t, "demo", sc.Name)
	require.Len(t, sc.Steps, 5)
	assert.Equal(t, "emotion", sc.Steps[0].kind())
	assert.Equal(t, 1500*time.Millisecond, sc.Steps[1].Advance)
	assert.Equal(t, "accept", sc.Steps[2].Action)
	assert.Equal(t, "hello", *sc.Steps[3].Send)
	assert.Equal(t, chat.VisibilityChatOpen, sc.Steps[4].Expect)
}

func TestLoadScenarioErrors(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"no steps":         "name: nothing\n",
		"two instructions": "steps:\n  - emotion: Bored\n    action: open\n",
		"no instruction":   "steps:\n  - {}\n",
		"unknown action":   "steps:\n  - action: dance\n",
		"unknown field":    "steps:\n  - wait: 1s\n",
		"bad visibility":   "steps:\n  - expect: minimised\n",
		"bad duration":     "steps:\n  - advance: soon\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
