package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_CarriesTypeAndTime(t *testing.T) {
	evt := New(QuestionEscalated, map[string]interface{}{"escalation_id": "abc"})

	raw, err := json.Marshal(ToEnvelope(evt))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	got := env.Event()
	assert.Equal(t, QuestionEscalated, got.EventType())
	assert.Equal(t, "abc", got.Payload()["escalation_id"])
	assert.True(t, evt.Timestamp().Equal(got.Timestamp()))
}
