package activity

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/metrics"
)

// Counter is the tally store; redisx.Counter implements it.
type Counter interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Incr(ctx context.Context, eventType string) (int64, error)
}

type Tally struct {
	Counter Counter
	Log     *logrus.Entry
}

var known = map[string]bool{
	EventUserLoggedIn: true,
	EventCartUpdated:  true,
	EventOrderPlaced:  true,
}

// Handle is a kafka.Handler. Each event id is counted at most once;
// undecodable messages and unknown types are skipped so they do not block the partition.
func (t *Tally) Handle(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		t.Log.WithError(err).WithField("offset", m.Offset).Warn("activity: skipping undecodable message")
		metrics.RecordActivity("", "invalid")
		return nil
	}
	if !known[env.EventType] {
		// wire values never become label values
		metrics.RecordActivity("", "ignored")
		return nil
	}
	if env.EventID == "" {
		metrics.RecordActivity(env.EventType, "ignored")
		return nil
	}

	first, err := t.Counter.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		metrics.RecordActivity(env.EventType, "duplicate")
		return nil
	}

	n, err := t.Counter.Incr(ctx, env.EventType)
	if err != nil {
		return fmt.Errorf("incr %s: %w", env.EventType, err)
	}
	metrics.RecordActivity(env.EventType, "counted")
	t.Log.WithFields(logrus.Fields{
		"event_type": env.EventType,
		"event_id":   env.EventID,
		"visitor":    env.CorrelationID,
		"total":      n,
	}).Debug("activity: counted")
	return nil
}
