package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

func TestCarrierToKafkaHeaders(t *testing.T) {
	carrier := propagation.MapCarrier{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		"tracestate":  "  ",
	}

	headers := carrierToKafkaHeaders(carrier)

	require.Len(t, headers, 1)
	assert.Equal(t, "traceparent", headers[0].Key)
	assert.Equal(t, carrier["traceparent"], string(headers[0].Value))
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "clicks.recorded"})
	assert.Error(t, err)

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "clicks.recorded"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNewClickRecorded(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	event := NewClickRecorded("abc123", 7, "10.0.0.1", "curl/8.0", "BR", at)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, int64(7), event.Ordinal)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())
	assert.True(t, at.Equal(event.OccurredAt))
	assert.Equal(t, []byte("abc123"), event.Key())

	other := NewClickRecorded("abc123", 8, "", "", "", at)
	assert.NotEqual(t, event.EventID, other.EventID)
}
