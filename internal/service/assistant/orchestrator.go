package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	chatlog "github.com/emolearn/emolearn/backend/internal/service/chat"
	"github.com/emolearn/emolearn/backend/internal/service/trigger"
)

var (
	ErrNotConfirming   = errors.New("confirm prompt is not shown")
	ErrChatClosed      = errors.New("chat is not open")
	ErrUnsupportedMode = errors.New("mode is not an intervention")
	ErrShutdown        = errors.New("assistant session is shut down")
)

const subscriberBuffer = 64

// Timing holds the orchestrator's scheduling windows.
type Timing struct {
	// TriggerLatency delays the confirm prompt after a gate decision.
	TriggerLatency time.Duration
	// Cooldown suppresses further proactive prompts, counted from the moment
	// the prompt is shown.
	Cooldown time.Duration
	// PromptTimeout closes an unanswered confirm prompt.
	PromptTimeout time.Duration
	// ReplyTimeout bounds one reply acquisition. Zero means no bound.
	ReplyTimeout time.Duration
}

// DefaultTiming returns the production windows.
func DefaultTiming() Timing {
	return Timing{
		TriggerLatency: time.Second,
		Cooldown:       15 * time.Second,
		PromptTimeout:  10 * time.Second,
		ReplyTimeout:   60 * time.Second,
	}
}

// Observer receives instrumentation callbacks. Calls happen under the
// orchestrator lock and must not block.
type Observer interface {
	EmotionObserved(sym emotion.Symbol)
	GateDecided(action trigger.Action, reason trigger.Reason)
	Transitioned(from, to chat.Visibility)
	ReplyCompleted(mode chat.Mode, outcome string, elapsed time.Duration)
	EventDropped(event string)
}

// Reply outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

type noopObserver struct{}

func (noopObserver) EmotionObserved(emotion.Symbol) {}
func (noopObserver) GateDecided(trigger.Action, trigger.Reason) {}
func (noopObserver) Transitioned(chat.Visibility, chat.Visibility) {}
func (noopObserver) ReplyCompleted(chat.Mode, string, time.Duration) {}
func (noopObserver) EventDropped(string) {}

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	ID        string
	Clock     clockwork.Clock
	Completer Completer
	Timing    Timing
	Logger    *logrus.Entry
	Observer  Observer
}

// Orchestrator is the emotion-triggered assistant state machine for one
// learner overlay.
//
// Every transition runs under mu, which plays the role of the UI event loop:
// handlers never interleave. Timer callbacks and reply continuations re-enter
// through the same lock and carry a token (timers) or the session epoch
// (replies) so that anything scheduled before a close is dropped.
type Orchestrator struct {
	id        string
	clock     clockwork.Clock
	completer Completer
	timing    Timing
	logger    *logrus.Entry
	observer  Observer

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu                 sync.Mutex
	shutdown           bool
	visibility         chat.Visibility
	current            emotion.Symbol
	pending            emotion.Symbol
	pendingSet         bool
	triggeredByEmotion bool
	confirmText        string
	draft              string
	gate               *trigger.Gate
	conversation       *chatlog.Log

	epoch          uint64
	sessionCtx     context.Context
	sessionCancel  context.CancelFunc
	pendingReplies int

	openPending   bool
	openToken     uint64
	openTimer     clockwork.Timer
	promptToken   uint64
	promptTimer   clockwork.Timer
	cooldownTimer clockwork.Timer

	subscribers map[int]chan Event
	nextSub     int
}

// New returns a closed orchestrator.
func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timing := opts.Timing
	defaults := DefaultTiming()
	if timing.TriggerLatency <= 0 {
		timing.TriggerLatency = defaults.TriggerLatency
	}
	if timing.Cooldown <= 0 {
		timing.Cooldown = defaults.Cooldown
	}
	if timing.PromptTimeout <= 0 {
		timing.PromptTimeout = defaults.PromptTimeout
	}
	if timing.ReplyTimeout < 0 {
		timing.ReplyTimeout = 0
	}
	completer := opts.Completer
	if completer == nil {
		completer = CompleterFunc(func(context.Context, string, chat.Mode) (string, error) {
			return "", errors.New("no completer configured")
		})
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		id:           opts.ID,
		clock:        clock,
		completer:    completer,
		timing:       timing,
		logger:       logger.WithField("session", opts.ID),
		observer:     observer,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
		visibility:   chat.VisibilityClosed,
		gate:         trigger.NewGate(),
		conversation: chatlog.NewLog(clock),
		subscribers:  make(map[int]chan Event),
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.id
}

// OnEmotionChange handles a label from the emotion detector. While anything
// is shown, or an open is already scheduled, the label is only remembered.
func (o *Orchestrator) OnEmotionChange(sym emotion.Symbol) trigger.Decision {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return trigger.Decision{Action: trigger.ActionIgnore, Reason: trigger.ReasonBusy}
	}

	o.current = sym
	o.observer.EmotionObserved(sym)

	var decision trigger.Decision
	if o.visibility != chat.VisibilityClosed || o.openPending {
		o.gate.Remember(sym)
		decision = trigger.Decision{Action: trigger.ActionIgnore, Reason: trigger.ReasonBusy}
	} else {
		decision = o.gate.Observe(sym)
	}
	o.observer.GateDecided(decision.Action, decision.Reason)

	if decision.Action != trigger.ActionOpenConfirmPrompt {
		return decision
	}

	o.logger.WithFields(logrus.Fields{
		"emotion": sym,
		"delay":   o.timing.TriggerLatency,
	}).Info("scheduling confirm prompt")

	o.openPending = true
	o.openToken++
	token := o.openToken
	generation := decision.Generation
	o.openTimer = o.clock.AfterFunc(o.timing.TriggerLatency, func() {
		o.showConfirmPrompt(token, sym, generation)
	})
	o.emitLocked(EventCooldown, "started", nil)
	return decision
}

// ManualOpen opens the chat directly. It bypasses and clears the cooldown and
// cancels a scheduled confirm prompt.
func (o *Orchestrator) ManualOpen() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return
	}

	o.cancelPendingOpenLocked()
	o.resetCooldownLocked()

	switch o.visibility {
	case chat.VisibilityClosed:
		o.startSessionLocked(chat.VisibilityChatOpen, o.current, false)
		o.emitLocked(EventChat, "manual", nil)
	case chat.VisibilityConfirmPrompt:
		o.stopPromptTimerLocked()
		o.transitionLocked(chat.VisibilityChatOpen)
		o.emitLocked(EventChat, "manual", nil)
	}
}

// Toggle mirrors the control surface button: it closes an open assistant and
// manually opens a closed one.
func (o *Orchestrator) Toggle() {
	o.mu.Lock()
	open := o.visibility.Open()
	o.mu.Unlock()

	if open {
		o.Close()
		return
	}
	o.ManualOpen()
}

// Accept promotes the confirm prompt to the chat panel.
func (o *Orchestrator) Accept() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return ErrShutdown
	}
	if o.visibility != chat.VisibilityConfirmPrompt {
		return ErrNotConfirming
	}

	o.stopPromptTimerLocked()
	o.transitionLocked(chat.VisibilityChatOpen)
	o.emitLocked(EventChat, "accepted", nil)
	return nil
}

// Close returns to closed from any state, discarding the conversation and
// clearing the cooldown. A scheduled confirm prompt is cancelled.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return
	}

	o.cancelPendingOpenLocked()
	o.resetCooldownLocked()
	if o.visibility == chat.VisibilityClosed {
		return
	}
	o.endSessionLocked(CloseReasonExplicit)
}

// UpdateDraft stores the composer input.
func (o *Orchestrator) UpdateDraft(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = text
}

// SendUserMessage appends the learner's message and requests a reply. It
// returns false, changing nothing, when the text is blank or the chat panel
// is not open.
func (o *Orchestrator) SendUserMessage(text string) bool {
	trimmed := strings.TrimSpace(text)

	o.mu.Lock()
	defer o.mu.Unlock()

	if trimmed == "" || o.shutdown || o.visibility != chat.VisibilityChatOpen {
		return false
	}

	message := o.conversation.Append(chat.SenderUser, trimmed)
	o.draft = ""
	o.emitLocked(EventMessage, "", &message)
	o.requestReplyLocked(trimmed, chat.DetectMode(trimmed))
	return true
}

// RequestIntervention asks for a reply in one of the auxiliary modes, using
// the learner's latest message (or the greeting) as the prompt.
func (o *Orchestrator) RequestIntervention(mode chat.Mode) error {
	if !mode.Intervention() {
		return ErrUnsupportedMode
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return ErrShutdown
	}
	if o.visibility != chat.VisibilityChatOpen {
		return ErrChatClosed
	}

	prompt := emotion.Greeting(o.pending)
	if last, ok := o.conversation.LastFrom(chat.SenderUser); ok {
		prompt = last.Body
	}
	o.requestReplyLocked(prompt, mode)
	return nil
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers for events. The returned function unsubscribes and
// closes the channel. Events are dropped for subscribers that fall behind.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if o.shutdown {
		close(ch)
		return ch, func() {}
	}

	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(sub)
		}
	}
}

// Shutdown stops every timer, abandons in-flight replies, closes subscriber
// channels and waits for outstanding continuations.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return
	}

	o.cancelPendingOpenLocked()
	o.resetCooldownLocked()
	if o.visibility != chat.VisibilityClosed {
		o.endSessionLocked(CloseReasonShutdown)
	}
	o.shutdown = true
	o.baseCancel()

	for id, sub := range o.subscribers {
		delete(o.subscribers, id)
		close(sub)
	}
	o.mu.Unlock()

	o.wg.Wait()
	o.logger.Debug("assistant session shut down")
}

func (o *Orchestrator) showConfirmPrompt(token uint64, sym emotion.Symbol, generation uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown || !o.openPending || token != o.openToken {
		return
	}
	o.openPending = false
	o.openTimer = nil

	if o.visibility != chat.VisibilityClosed {
		return
	}

	o.startSessionLocked(chat.VisibilityConfirmPrompt, sym, true)
	o.confirmText = emotion.ConfirmPrompt(sym)

	o.promptToken++
	promptToken := o.promptToken
	o.promptTimer = o.clock.AfterFunc(o.timing.PromptTimeout, func() {
		o.expirePrompt(promptToken)
	})

	if o.cooldownTimer != nil {
		o.cooldownTimer.Stop()
	}
	o.cooldownTimer = o.clock.AfterFunc(o.timing.Cooldown, func() {
		o.releaseCooldown(generation)
	})

	o.emitLocked(EventPrompt, string(sym), nil)
}

func (o *Orchestrator) expirePrompt(token uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown || token != o.promptToken || o.visibility != chat.VisibilityConfirmPrompt {
		return
	}
	o.promptTimer = nil
	o.logger.Info("confirm prompt timed out")
	o.endSessionLocked(CloseReasonTimeout)
}

func (o *Orchestrator) releaseCooldown(generation uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown || !o.gate.Release(generation) {
		return
	}
	o.cooldownTimer = nil
	o.logger.Debug("proactive prompt cooldown released")
	o.emitLocked(EventCooldown, "released", nil)
}

func (o *Orchestrator) requestReplyLocked(prompt string, mode chat.Mode) {
	epoch := o.epoch
	ctx := o.sessionCtx
	o.pendingReplies++
	o.wg.Add(1)
	go o.acquireReply(ctx, epoch, prompt, mode)
}

func (o *Orchestrator) acquireReply(ctx context.Context, epoch uint64, prompt string, mode chat.Mode) {
	defer o.wg.Done()

	if o.timing.ReplyTimeout > 0 {
		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		defer cancel(nil)
		timer := o.clock.AfterFunc(o.timing.ReplyTimeout, func() {
			cancel(context.DeadlineExceeded)
		})
		defer timer.Stop()
	}

	started := o.clock.Now()
	reply, err := o.completer.Complete(ctx, prompt, mode)
	elapsed := o.clock.Since(started)
	if err != nil && errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		err = context.Cause(ctx)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown || epoch != o.epoch || o.visibility != chat.VisibilityChatOpen {
		o.observer.ReplyCompleted(mode, OutcomeDiscarded, elapsed)
		o.logger.WithField("mode", mode).Debug("discarding reply for ended session")
		return
	}

	o.pendingReplies--
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		reply = FailureNotice
		o.logger.WithError(err).WithField("mode", mode).Warn("reply acquisition failed")
	}
	o.observer.ReplyCompleted(mode, outcome, elapsed)

	message := o.conversation.Append(chat.SenderAssistant, reply)
	o.emitLocked(EventMessage, outcome, &message)
}

// startSessionLocked opens a new session seeded with the greeting for sym.
func (o *Orchestrator) startSessionLocked(to chat.Visibility, sym emotion.Symbol, triggered bool) {
	o.sessionCtx, o.sessionCancel = context.WithCancel(o.baseCtx)
	o.pending = sym
	o.pendingSet = true
	o.triggeredByEmotion = triggered
	o.conversation.Reset()
	o.transitionLocked(to)

	greeting := o.conversation.Append(chat.SenderAssistant, emotion.Greeting(sym))
	o.emitLocked(EventMessage, "greeting", &greeting)
}

// endSessionLocked closes the current session. The cooldown is left alone;
// callers that must clear it do so explicitly.
func (o *Orchestrator) endSessionLocked(reason string) {
	o.stopPromptTimerLocked()
	if o.sessionCancel != nil {
		o.sessionCancel()
		o.sessionCancel = nil
	}
	o.sessionCtx = nil
	o.epoch++

	o.pending = emotion.None
	o.pendingSet = false
	o.triggeredByEmotion = false
	o.confirmText = ""
	o.draft = ""
	o.pendingReplies = 0
	o.conversation.Reset()

	o.transitionLocked(chat.VisibilityClosed)
	o.emitLocked(EventClosed, reason, nil)
}

func (o *Orchestrator) transitionLocked(to chat.Visibility) {
	from := o.visibility
	if from == to {
		return
	}
	o.visibility = to
	o.observer.Transitioned(from, to)
	o.logger.WithFields(logrus.Fields{"from": from, "to": to}).Info("assistant transition")
}

func (o *Orchestrator) cancelPendingOpenLocked() {
	if !o.openPending {
		return
	}
	o.openPending = false
	o.openToken++
	if o.openTimer != nil {
		o.openTimer.Stop()
		o.openTimer = nil
	}
	o.logger.Debug("scheduled confirm prompt cancelled")
}

func (o *Orchestrator) stopPromptTimerLocked() {
	o.promptToken++
	if o.promptTimer != nil {
		o.promptTimer.Stop()
		o.promptTimer = nil
	}
}

func (o *Orchestrator) resetCooldownLocked() {
	wasActive := o.gate.CooldownActive()
	o.gate.Reset()
	if o.cooldownTimer != nil {
		o.cooldownTimer.Stop()
		o.cooldownTimer = nil
	}
	if wasActive {
		o.emitLocked(EventCooldown, "cleared", nil)
	}
}

func (o *Orchestrator) snapshotLocked() State {
	messages := o.conversation.Messages()
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}

	state := State{
		ID:                 o.id,
		Visibility:         o.visibility,
		CurrentEmotion:     o.current,
		TriggeredByEmotion: o.triggeredByEmotion,
		CooldownActive:     o.gate.CooldownActive(),
		OpenScheduled:      o.openPending,
		ConfirmPrompt:      o.confirmText,
		Draft:              o.draft,
		PendingReplies:     o.pendingReplies,
		Messages:           views,
	}
	if o.pendingSet {
		pending := o.pending
		state.PendingEmotion = &pending
	}
	return state
}

func (o *Orchestrator) emitLocked(kind EventType, reason string, message *chat.Message) {
	if len(o.subscribers) == 0 {
		return
	}

	event := Event{
		Type:      kind,
		SessionID: o.id,
		Reason:    reason,
		State:     o.snapshotLocked(),
		At:        o.clock.Now().UTC(),
	}
	if message != nil {
		view := newMessageView(*message)
		event.Message = &view
	}

	for id, sub := range o.subscribers {
		select {
		case sub <- event:
		default:
			o.observer.EventDropped(string(kind))
			o.logger.WithFields(logrus.Fields{"subscriber": id, "event": kind}).Warn("subscriber lagging, event dropped")
		}
	}
}
