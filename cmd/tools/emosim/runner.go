package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	"github.com/emolearn/emolearn/backend/internal/service/assistant"
)

var scenarioEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// Runner replays a scenario against one orchestrator on a fake clock.
type Runner struct {
	clock     clockwork.FakeClock
	session   *assistant.Orchestrator
	events    <-chan assistant.Event
	out       io.Writer
	settle    time.Duration
	showState bool
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Completer assistant.Completer
	Timing    assistant.Timing
	Out       io.Writer
	// Settle is how long to wait for asynchronous events after each step.
	Settle    time.Duration
	ShowState bool
}

// NewRunner creates a closed session on a fake clock.
func NewRunner(opts RunnerOptions) *Runner {
	clock := clockwork.NewFakeClockAt(scenarioEpoch)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	session := assistant.New(assistant.Options{
		ID:        "emosim",
		Clock:     clock,
		Completer: opts.Completer,
		Timing:    opts.Timing,
		Logger:    logrus.NewEntry(logger),
	})
	events, _ := session.Subscribe()

	settle := opts.Settle
	if settle <= 0 {
		settle = 50 * time.Millisecond
	}
	return &Runner{
		clock:     clock,
		session:   session,
		events:    events,
		out:       opts.Out,
		settle:    settle,
		showState: opts.ShowState,
	}
}

// Close shuts the session down.
func (r *Runner) Close() {
	r.session.Shutdown()
}

// Run executes every step and stops at the first failed expectation.
func (r *Runner) Run(sc *Scenario) error {
	if sc.Name != "" {
		fmt.Fprintf(r.out, "# %s\n", sc.Name)
	}
	for i, step := range sc.Steps {
		fmt.Fprintf(r.out, "[%s] step %d: %s\n", r.elapsed(), i+1, describe(step))
		if err := r.apply(step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		r.drain()
		if r.showState {
			r.printState()
		}
	}
	r.printState()
	return nil
}

func (r *Runner) apply(step Step) error {
	switch step.kind() {
	case "emotion":
		sym, err := emotion.Parse(*step.Emotion)
		if err != nil {
			return err
		}
		decision := r.session.OnEmotionChange(sym)
		fmt.Fprintf(r.out, "    gate: %s (%s)\n", decision.Action, decision.Reason)
	case "advance":
		r.clock.Advance(step.Advance)
	case "action":
		switch step.Action {
		case "open":
			r.session.ManualOpen()
		case "toggle":
			r.session.Toggle()
		case "accept":
			return r.session.Accept()
		case "close":
			r.session.Close()
		}
	case "draft":
		r.session.UpdateDraft(*step.Draft)
	case "send":
		if !r.session.SendUserMessage(*step.Send) {
			fmt.Fprintln(r.out, "    send rejected")
		}
	case "intervention":
		mode, err := chat.ParseMode(step.Intervention)
		if err != nil {
			return err
		}
		return r.session.RequestIntervention(mode)
	case "expect":
		if got := r.session.Snapshot().Visibility; got != step.Expect {
			return fmt.Errorf("expected visibility %s, got %s", step.Expect, got)
		}
	}
	return nil
}

// drain prints events until none arrive for the settle period.
func (r *Runner) drain() {
	for {
		select {
		case event, ok := <-r.events:
			if !ok {
				return
			}
			r.printEvent(event)
		case <-time.After(r.settle):
			return
		}
	}
}

func (r *Runner) printEvent(event assistant.Event) {
	switch event.Type {
	case assistant.EventMessage:
		if event.Message == nil {
			return
		}
		fmt.Fprintf(r.out, "    %s %s: %s\n", event.Message.Stamp, event.Message.Sender, event.Message.HTML)
	case assistant.EventPrompt:
		fmt.Fprintf(r.out, "    prompt: %q\n", event.State.ConfirmPrompt)
	default:
		if event.Reason != "" {
			fmt.Fprintf(r.out, "    %s (%s)\n", event.Type, event.Reason)
		} else {
			fmt.Fprintf(r.out, "    %s\n", event.Type)
		}
	}
}

func (r *Runner) printState() {
	state := r.session.Snapshot()
	fmt.Fprintf(r.out, "    state: visibility=%s emotion=%s %s cooldown=%t messages=%d\n",
		state.Visibility, state.CurrentEmotion.Label(), state.CurrentEmotion.Emoji(),
		state.CooldownActive, len(state.Messages))
}

func (r *Runner) elapsed() string {
	return r.clock.Since(scenarioEpoch).String()
}

func describe(step Step) string {
	switch step.kind() {
	case "emotion":
		return "emotion " + *step.Emotion
	case "advance":
		return "advance " + step.Advance.String()
	case "action":
		return step.Action
	case "draft":
		return fmt.Sprintf("draft %q", *step.Draft)
	case "send":
		return fmt.Sprintf("send %q", *step.Send)
	case "intervention":
		return "intervention " + step.Intervention
	case "expect":
		return "expect " + string(step.Expect)
	default:
		return strings.TrimSpace(fmt.Sprintf("%+v", step))
	}
}
