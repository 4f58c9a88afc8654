// Package consumer ingests fixture payloads from Redis Streams, as an
// alternative to the HTTP ingestion endpoint for producers already on the
// bus.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/config"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/fixture"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/ingest"
	"github.com/redis/go-redis/v9"
)

const (
	// Batch size for reading messages
	batchSize = 100

	// Block duration when waiting for new messages
	blockDuration = 1 * time.Second
)

// StreamConsumer consumes fixture payloads from Redis Streams and feeds them
// through the same ingestion pipeline as the HTTP endpoint.
type StreamConsumer struct {
	redis        *redis.Client
	ingest       *ingest.Ingestor
	streamConfig config.StreamConfig
}

// NewStreamConsumer creates a new stream consumer.
func NewStreamConsumer(redisClient *redis.Client, ing *ingest.Ingestor, streamConfig config.StreamConfig) *StreamConsumer {
	return &StreamConsumer{
		redis:        redisClient,
		ingest:       ing,
		streamConfig: streamConfig,
	}
}

// Start begins consuming from Redis Streams. Blocks until ctx is cancelled.
func (sc *StreamConsumer) Start(ctx context.Context) error {
	fmt.Println("✓ Stream consumer started")

	streams := sc.streamConfig.GetAllStreams()
	fmt.Printf("  📡 Configured streams: %v\n", streams)

	// Create consumer groups (ignore errors if they already exist)
	for _, stream := range streams {
		sc.createConsumerGroup(ctx, stream)
	}

	for _, stream := range streams {
		streamName := stream // Capture for goroutine
		go sc.consumeStream(ctx, streamName)
	}

	<-ctx.Done()
	return nil
}

// createConsumerGroup creates a consumer group for a stream.
func (sc *StreamConsumer) createConsumerGroup(ctx context.Context, stream string) {
	err := sc.redis.XGroupCreateMkStream(ctx, stream, sc.streamConfig.ConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		fmt.Printf("⚠️  Failed to create consumer group for %s: %v\n", stream, err)
	}
}

// consumeStream consumes messages from a specific stream.
func (sc *StreamConsumer) consumeStream(ctx context.Context, stream string) {
	fmt.Printf("  📡 Consuming stream: %s\n", stream)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := sc.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    sc.streamConfig.ConsumerGroup,
				Consumer: sc.streamConfig.ConsumerID,
				Streams:  []string{stream, ">"},
				Count:    batchSize,
				Block:    blockDuration,
			}).Result()

			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				fmt.Printf("⚠️  Stream read error (%s): %v\n", stream, err)
				time.Sleep(1 * time.Second)
				continue
			}

			for _, s := range streams {
				for _, message := range s.Messages {
					sc.processMessage(ctx, s.Stream, message)
				}
			}
		}
	}
}

// processMessage parses one stream entry and feeds it to the ingestor.
func (sc *StreamConsumer) processMessage(ctx context.Context, stream string, msg redis.XMessage) {
	defer sc.ackMessage(ctx, stream, msg.ID)

	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		fmt.Printf("⚠️  Invalid message format in %s: %v\n", stream, msg.Values)
		return
	}

	var payload ingest.Payload
	if err := json.Unmarshal([]byte(dataStr), &payload); err != nil {
		fmt.Printf("⚠️  Failed to parse payload from %s: %v\n", stream, err)
		return
	}

	if strings.HasPrefix(stream, "fixtures.updates.") || payload.IsUpdate() {
		res, err := sc.ingest.Update(&payload)
		if errors.Is(err, fixture.ErrNoSnapshot) {
			fmt.Printf("⚠️  Dropping update from %s: no snapshot ingested yet\n", stream)
			return
		}
		if err == nil {
			fmt.Printf("📤 Broadcast update: fixture=%v lines=%d\n", res.FixtureID, res.NewLines)
		}
		return
	}

	res, err := sc.ingest.Snapshot(&payload)
	if err != nil {
		fmt.Printf("⚠️  Failed to broadcast snapshot from %s: %v\n", stream, err)
		return
	}
	fmt.Printf("📤 Broadcast snapshot: fixture=%v players=%d lines=%d\n", res.FixtureID, res.Players, res.NewLines)
}

// ackMessage acknowledges a message in the stream.
func (sc *StreamConsumer) ackMessage(ctx context.Context, stream string, messageID string) {
	err := sc.redis.XAck(ctx, stream, sc.streamConfig.ConsumerGroup, messageID).Err()
	if err != nil && ctx.Err() == nil {
		fmt.Printf("⚠️  Failed to ack message %s in %s: %v\n", messageID, stream, err)
	}
}
