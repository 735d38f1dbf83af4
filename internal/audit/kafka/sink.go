// Package kafka publishes audit events to a Kafka topic. Kafka is the
// long-term register; query paths read from downstream consumers, not from
// this sink.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"arkhiv/internal/audit"
	id "arkhiv/pkg/domain"
)

// Sink implements audit.Store by producing events to a topic. ListByUser is
// unsupported: reads happen downstream of the broker.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. The caller owns Close.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// payload is the JSON structure published to the topic. Field names are part
// of the consumer contract; change them only with a topic version bump.
type payload struct {
	Timestamp     string `json:"timestamp"`
	ActorID       string `json:"actor_id,omitempty"`
	SubjectUserID string `json:"subject_user_id,omitempty"`
	Action        string `json:"action"`
	RecordID      string `json:"record_id,omitempty"`
	AccessRequest string `json:"access_request,omitempty"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
}

// Append produces one event synchronously. Callers that cannot tolerate
// broker latency should emit through the async worker.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	p := payload{
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        string(event.Action),
		RecordID:      event.RecordID,
		AccessRequest: event.AccessRequest,
		Decision:      event.Decision,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		UserAgent:     event.UserAgent,
		ClientIP:      event.ClientIP,
	}
	if !event.ActorID.IsNil() {
		p.ActorID = event.ActorID.String()
	}
	if !event.SubjectUserID.IsNil() {
		p.SubjectUserID = event.SubjectUserID.String()
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(p.SubjectUserID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByUser is not supported by the Kafka sink.
func (s *Sink) ListByUser(_ context.Context, _ id.UserID) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka sink does not support reads")
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
