package trigger

import "github.com/emolearn/emolearn/backend/internal/model/emotion"

// Action is the gate's verdict for one emotion signal.
type Action string

const (
	ActionIgnore            Action = "ignore"
	ActionOpenConfirmPrompt Action = "open-confirm-prompt"
)

// Reason explains a verdict for logs and metrics.
type Reason string

const (
	ReasonTriggered   Reason = "triggered"
	ReasonNotNegative Reason = "not-negative"
	ReasonRepeat      Reason = "repeat"
	ReasonCooldown    Reason = "cooldown"
	ReasonBusy        Reason = "busy"
)

// Evaluate decides whether a new emotion should surface the confirm prompt.
// It opens only for a negative emotion that differs from the previous label
// while no cooldown is active.
func Evaluate(next, previous emotion.Symbol, cooldownActive bool) Action {
	action, _ := Explain(next, previous, cooldownActive)
	return action
}

// Explain is Evaluate plus the reason for the verdict.
func Explain(next, previous emotion.Symbol, cooldownActive bool) (Action, Reason) {
	switch {
	case !next.IsNegative():
		return ActionIgnore, ReasonNotNegative
	case next == previous:
		return ActionIgnore, ReasonRepeat
	case cooldownActive:
		return ActionIgnore, ReasonCooldown
	default:
		return ActionOpenConfirmPrompt, ReasonTriggered
	}
}

// Decision is the outcome of Gate.Observe.
type Decision struct {
	Action Action
	Reason Reason
	// Generation identifies the cooldown token started by this decision.
	Generation uint64
}

// Gate tracks the previously observed label and the single cooldown token.
// It is owned by one orchestrator and relies on the owner for serialization.
type Gate struct {
	previous   emotion.Symbol
	cooldown   bool
	generation uint64
}

// NewGate returns a gate with no history and no cooldown.
func NewGate() *Gate {
	return &Gate{}
}

// Observe evaluates sym against the history, records it as the previous
// label and, when opening, marks the cooldown active before returning so a
// burst of signals cannot trigger twice.
func (g *Gate) Observe(sym emotion.Symbol) Decision {
	action, reason := Explain(sym, g.previous, g.cooldown)
	g.previous = sym

	if action != ActionOpenConfirmPrompt {
		return Decision{Action: action, Reason: reason}
	}

	g.cooldown = true
	g.generation++
	return Decision{Action: action, Reason: reason, Generation: g.generation}
}

// Remember records sym as the previous label without evaluating it.
func (g *Gate) Remember(sym emotion.Symbol) {
	g.previous = sym
}

// Previous returns the last observed label.
func (g *Gate) Previous() emotion.Symbol {
	return g.previous
}

// CooldownActive reports whether proactive openings are suppressed.
func (g *Gate) CooldownActive() bool {
	return g.cooldown
}

// Release ends the cooldown started by the given generation. Releases for an
// older token are ignored.
func (g *Gate) Release(generation uint64) bool {
	if !g.cooldown || generation != g.generation {
		return false
	}
	g.cooldown = false
	return true
}

// Reset clears the cooldown and invalidates any scheduled release.
func (g *Gate) Reset() {
	g.cooldown = false
	g.generation++
}
