package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

type Op string

const (
	OpCreated Op = "created"
	OpDeleted Op = "deleted"
)

// ChangeEvent announces that an owner's upload set changed. Subscribers
// reload the owner's full list on every event.
type ChangeEvent struct {
	OwnerID  string `json:"ownerId"`
	UploadID string `json:"uploadId"`
	Op       Op     `json:"op"`
	AtMs     int64  `json:"at"`
}

func (e ChangeEvent) encode() ([]byte, error) { return json.Marshal(e) }

func decodeEvent(b []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return ChangeEvent{}, err
	}
	if e.OwnerID == "" {
		return ChangeEvent{}, errors.New("change event without owner")
	}
	return e, nil
}

// Publisher sends change events. *kafkaclient.KafkaProducer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// MessageIterator is a source of change-event messages.
// *kafkaclient.KafkaConsumer implements it.
type MessageIterator interface {
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// MemoryFeed is an in-process Publisher and MessageIterator for deployments
// without a broker.
type MemoryFeed struct {
	mu     sync.Mutex
	ch     chan kafka.Message
	closed bool
}

func NewMemoryFeed(buffer int) *MemoryFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryFeed{ch: make(chan kafka.Message, buffer)}
}

func (f *MemoryFeed) Publish(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("uploads: feed closed")
	}
	select {
	case f.ch <- kafka.Message{Key: []byte(key), Value: value}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *MemoryFeed) Messages() <-chan kafka.Message { return f.ch }

func (f *MemoryFeed) CommitOffset(context.Context, kafka.Message) error { return nil }

// Close ends the message stream.
func (f *MemoryFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
