package notify

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RoomBroadcaster is implemented by the websocket manager.
type RoomBroadcaster interface {
	BroadcastToRoom(room string, data []byte) int
}

// WebSocketSink pushes each message to the websocket room named after its channel.
type WebSocketSink struct {
	rooms RoomBroadcaster
}

func NewWebSocketSink(rooms RoomBroadcaster) *WebSocketSink {
	return &WebSocketSink{rooms: rooms}
}

func (s *WebSocketSink) Name() string { return "websocket" }

func (s *WebSocketSink) Send(_ context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	s.rooms.BroadcastToRoom(msg.Channel, data)
	return nil
}

// PubSubSink publishes to a single Google Cloud Pub/Sub topic. The channel
// and event name travel as message attributes so subscribers can filter.
type PubSubSink struct {
	topic *pubsub.Topic
}

func NewPubSubSink(topic *pubsub.Topic) *PubSubSink {
	topic.EnableMessageOrdering = true
	return &PubSubSink{topic: topic}
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: msg.Channel,
		Attributes: map[string]string{
			"channel": msg.Channel,
			"event":   msg.Event,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		s.topic.ResumePublish(msg.Channel)
		return errors.Wrap(err, "publishing to pubsub")
	}
	return nil
}

// Stop flushes pending publishes.
func (s *PubSubSink) Stop() {
	s.topic.Stop()
}

// RedisSink issues a PUBLISH per message so other instances can relay it.
type RedisSink struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSink(client redis.UniversalClient) *RedisSink {
	return &RedisSink{client: client, prefix: "civic:"}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	return errors.Wrap(s.client.Publish(ctx, s.prefix+msg.Channel, data).Err(), "publishing to redis")
}
