package emotion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emolearn/emolearn/backend/internal/model/emotion"
)

func TestListEmotions(t *testing.T) {
	r := chi.NewRouter()
	New().RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/emotions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var catalog Catalog
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &catalog))
	require.Len(t, catalog.Emotions, len(emotion.All()))
	assert.Len(t, catalog.Interventions, 7)

	bySymbol := map[emotion.Symbol]Entry{}
	for _, entry := range catalog.Emotions {
		bySymbol[entry.Symbol] = entry
	}

	sleepy := bySymbol[emotion.Sleepy]
	assert.True(t, sleepy.Negative)
	assert.Equal(t, "💤", sleepy.Emoji)
	assert.Equal(t, "Feeling sleepy? Need a quick quiz or break?", sleepy.ConfirmPrompt)

	happy := bySymbol[emotion.Happy]
	assert.False(t, happy.Negative)
	assert.Empty(t, happy.ConfirmPrompt)
	assert.Equal(t, emotion.DefaultGreeting, happy.Greeting)

	assert.Equal(t, "Face Not Detected", bySymbol[emotion.FaceNotDetected].Label)
}
