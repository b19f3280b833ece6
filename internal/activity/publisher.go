package activity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
)

// Publisher records an activity event for a visitor. It must not block the caller.
type Publisher interface {
	Publish(visitorID, eventType string, payload any)
}

type Noop struct{}

func (Noop) Publish(string, string, any) {}

type producer interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// KafkaPublisher wraps payloads in an Envelope and hands them to a Kafka producer.
type KafkaPublisher struct {
	p       producer
	service string
	now     func() time.Time
}

func NewKafkaPublisher(p *kafkax.Producer, service string) *KafkaPublisher {
	return &KafkaPublisher{p: p, service: service, now: time.Now}
}

func (k *KafkaPublisher) Publish(visitorID, eventType string, payload any) {
	ev := NewEnvelope(k.service, visitorID, eventType, payload, k.now())
	k.p.Publish(PartitionKey(visitorID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}

func NewEnvelope(producer, visitorID, eventType string, payload any, at time.Time) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: visitorID,
		Payload:       kafkax.MustMarshal(payload),
	}
}
