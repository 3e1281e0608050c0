package trigger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emolearn/emolearn/backend/internal/model/emotion"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		next     emotion.Symbol
		previous emotion.Symbol
		cooldown bool
		want     Action
		reason   Reason
	}{
		{"new negative opens", emotion.Confused, emotion.Happy, false, ActionOpenConfirmPrompt, ReasonTriggered},
		{"first negative opens", emotion.Bored, emotion.None, false, ActionOpenConfirmPrompt, ReasonTriggered},
		{"negative to other negative opens", emotion.Sleepy, emotion.Confused, false, ActionOpenConfirmPrompt, ReasonTriggered},
		{"repeat ignored", emotion.Frustrated, emotion.Frustrated, false, ActionIgnore, ReasonRepeat},
		{"cooldown ignored", emotion.Confused, emotion.Happy, true, ActionIgnore, ReasonCooldown},
		{"positive ignored", emotion.Happy, emotion.Confused, false, ActionIgnore, ReasonNotNegative},
		{"unknown ignored", emotion.Unknown, emotion.Happy, false, ActionIgnore, ReasonNotNegative},
		{"face lost ignored", emotion.FaceNotDetected, emotion.Happy, false, ActionIgnore, ReasonNotNegative},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, reason := Explain(tc.next, tc.previous, tc.cooldown)
			assert.Equal(t, tc.want, action)
			assert.Equal(t, tc.reason, reason)
			assert.Equal(t, tc.want, Evaluate(tc.next, tc.previous, tc.cooldown))
		})
	}
}

func TestGateHappyThenConfusedOpensOnce(t *testing.T) {
	g := NewGate()

	assert.Equal(t, ActionIgnore, g.Observe(emotion.Happy).Action)
	d := g.Observe(emotion.Confused)
	require.Equal(t, ActionOpenConfirmPrompt, d.Action)
	assert.True(t, g.CooldownActive())

	assert.Equal(t, ActionIgnore, g.Observe(emotion.Confused).Action)
	assert.Equal(t, ReasonCooldown, g.Observe(emotion.Bored).Reason)
}

func TestGateCooldownSuppressesUntilReleased(t *testing.T) {
	g := NewGate()
	d := g.Observe(emotion.Confused)
	require.Equal(t, ActionOpenConfirmPrompt, d.Action)

	for _, sym := range []emotion.Symbol{emotion.Happy, emotion.Frustrated, emotion.Engaged, emotion.Sleepy} {
		assert.Equal(t, ActionIgnore, g.Observe(sym).Action, string(sym))
	}

	require.True(t, g.Release(d.Generation))
	assert.Equal(t, ActionOpenConfirmPrompt, g.Observe(emotion.Bored).Action)
}

func TestGateStaleReleaseIgnored(t *testing.T) {
	g := NewGate()
	first := g.Observe(emotion.Confused)
	g.Reset()
	second := g.Observe(emotion.Bored)
	require.Equal(t, ActionOpenConfirmPrompt, second.Action)

	assert.False(t, g.Release(first.Generation))
	assert.True(t, g.CooldownActive())
	assert.True(t, g.Release(second.Generation))
}

func TestGateRememberUpdatesHistoryOnly(t *testing.T) {
	g := NewGate()
	g.Remember(emotion.Confused)
	assert.Equal(t, emotion.Confused, g.Previous())
	assert.False(t, g.CooldownActive())
	assert.Equal(t, ReasonRepeat, g.Observe(emotion.Confused).Reason)
}

// Even with the cooldown released after every decision, two identical
// negative labels in a row never open twice.
func TestGateNeverReopensOnRepeat(t *testing.T) {
	symbols := append(emotion.All(), emotion.None)
	rng := rand.New(rand.NewSource(42))
	g := NewGate()

	previous := emotion.None
	for i := 0; i < 5000; i++ {
		sym := symbols[rng.Intn(len(symbols))]
		d := g.Observe(sym)
		if d.Action == ActionOpenConfirmPrompt {
			require.NotEqual(t, previous, sym)
			require.True(t, sym.IsNegative())
			g.Release(d.Generation)
		}
		previous = sym
	}
}
