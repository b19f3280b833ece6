package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes from a buffered inbox on a single goroutine. Publish
// never blocks: when the inbox is full the message is dropped and logged.
type Producer struct {
	w        messageWriter
	inbox    chan kafka.Message
	stop     chan struct{}
	closedCh chan struct{}
	once     sync.Once
	log      *logrus.Entry
}

func NewProducer(brokers []string, topic string, buf int, log *logrus.Entry) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("count", len(msgs)).Error("kafka: async write failed")
			}
		},
	}
	return newProducer(w, buf, log.WithField("topic", topic))
}

func newProducer(w messageWriter, buf int, log *logrus.Entry) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:        w,
		inbox:    make(chan kafka.Message, buf),
		stop:     make(chan struct{}),
		closedCh: make(chan struct{}),
		log:      log,
	}
}

// Start runs the write loop until ctx is done or Close is called, then
// flushes what is left in the inbox and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closedCh)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-ctx.Done():
				p.drain()
				return
			case <-p.stop:
				p.drain()
				return
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.WithError(err).WithField("key", string(m.Key)).Error("kafka: write")
	}
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.WithError(err).Warn("kafka: close writer")
			}
			return
		}
	}
}

// Publish queues a message and reports whether it was accepted.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) bool {
	select {
	case <-p.stop:
		return false
	default:
	}
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
		return true
	default:
		p.log.WithField("key", string(key)).Warn("kafka: inbox full, dropping message")
		return false
	}
}

// Close stops accepting messages; the loop flushes the rest and exits.
func (p *Producer) Close() { p.once.Do(func() { close(p.stop) }) }

// WaitClosed blocks until the write loop has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closedCh }
