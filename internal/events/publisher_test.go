package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNSQPublisher_UnreachableNSQD(t *testing.T) {
	_, err := NewNSQPublisher("127.0.0.1:1")
	assert.ErrorContains(t, err, "ping nsqd")
}

func TestStatusEvent_JSON(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(StatusEvent{TransactionID: "tx-1", Amount: 700, To: "CREATED", Actor: "merchant", At: at})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.NotContains(t, got, "from")
	assert.Equal(t, "CREATED", got["to"])
	assert.Equal(t, "2026-03-10T12:00:00Z", got["at"])
	assert.NoError(t, Nop{}.Publish(TopicTransactionStatus, got))
}
