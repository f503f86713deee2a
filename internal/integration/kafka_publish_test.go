//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/power-outage-etl/internal/adapter/kafka"
	"github.com/couchcryptid/power-outage-etl/internal/config"
	"github.com/couchcryptid/power-outage-etl/internal/domain"
)

const testOutageTopic = "test-outages-inserted"

func TestKafkaPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testOutageTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testOutageTopic}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	providerID := int64(5)
	insertedAt := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	event := domain.OutageInserted{
		Outage: domain.StoredOutage{
			OutageID:    42,
			ReferenceID: "S1",
			ProviderID:  &providerID,
			Planned:     domain.PlannedFalse,
		},
		ProviderName: domain.ProviderSSEN,
		InsertedAt:   insertedAt,
	}
	require.NoError(t, pub.Publish(ctx, []domain.OutageInserted{event}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testOutageTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from outage topic")

	assert.Equal(t, "S1", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(domain.ProviderSSEN), headers["provider"])
	assert.Equal(t, "2024-05-01T08:00:00Z", headers["inserted_at"])

	var got domain.OutageInserted
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, int64(42), got.Outage.OutageID)
	assert.Equal(t, domain.PlannedFalse, got.Outage.Planned)
	require.NotNil(t, got.Outage.ProviderID)
	assert.Equal(t, providerID, *got.Outage.ProviderID)
	assert.True(t, got.InsertedAt.Equal(insertedAt))
}
