package kafkaclient

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaReader defines the interface for a Kafka message reader.
// This allows for easy mocking in unit tests.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer manages the Kafka consumer and its message loop.
// It is designed to be thread-safe.
type KafkaConsumer struct {
	reader KafkaReader
	// a channel to signal a graceful shutdown.
	doneChan chan struct{}
	// a wait group to ensure all goroutines have exited before the program terminates.
	wg sync.WaitGroup
	// a channel to hold the Kafka messages, which are then consumed by the Iterator.
	messageChan chan kafka.Message
	stopOnce    sync.Once
}

func (kc *KafkaConsumer) Messages() <-chan kafka.Message {
	return kc.messageChan
}

func (kc *KafkaConsumer) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return kc.reader.CommitMessages(ctx, msg)
}

// NewKafkaConsumer creates a consumer group reader for topic. Every server
// instance should use its own groupID so each one sees all change events.
func NewKafkaConsumer(topic, groupID, broker string) (*KafkaConsumer, error) {
	if topic == "" || broker == "" {
		return nil, errors.New("kafka: topic and broker are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
		// Disable auto-commit to manually control offset committing.
		CommitInterval: 0,
		// Change events are tiny; don't wait for a batch to fill.
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(reader), nil
}

func newConsumer(reader KafkaReader) *KafkaConsumer {
	return &KafkaConsumer{
		reader:      reader,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
	}
}

// StartConsuming begins the Kafka message consumption loop in a separate goroutine.
func (kc *KafkaConsumer) StartConsuming(ctx context.Context) {
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		defer close(kc.messageChan)

		log.Println("[kafka] starting consumer loop")

		for {
			select {
			// Check for context cancellation or done signal.
			case <-ctx.Done():
				log.Println("[kafka] context canceled, stopping consumer loop")
				return
			case <-kc.doneChan:
				log.Println("[kafka] shutdown signal received, stopping consumer loop")
				return
			default:
				// Read a single message.
				msg, err := kc.reader.ReadMessage(ctx)
				if err != nil {
					// A closed reader reports io.EOF.
					if errors.Is(err, io.EOF) || ctx.Err() != nil {
						log.Printf("[kafka] reader finished: %v", err)
						return
					}
					log.Printf("[kafka] error reading message: %v", err)
					// Introduce a backoff to prevent a tight error loop.
					time.Sleep(1 * time.Second)
					continue
				}

				// Send the message to the message channel for external consumption.
				select {
				case kc.messageChan <- msg:
					log.Printf("[kafka] message received: topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
				case <-ctx.Done():
					log.Println("[kafka] context canceled before handing off message")
					return
				case <-kc.doneChan:
					log.Println("[kafka] shutdown signal received before handing off message")
					return
				}
			}
		}
	}()
}

// Stop gracefully shuts down the Kafka consumer.
func (kc *KafkaConsumer) Stop() {
	kc.stopOnce.Do(func() {
		close(kc.doneChan)
		kc.wg.Wait()
		if err := kc.reader.Close(); err != nil {
			log.Printf("[kafka] failed to close reader: %v", err)
		}
		log.Println("[kafka] consumer stopped")
	})
}

// Iterator provides a channel-based interface to consume messages.
type Iterator struct {
	messages chan kafka.Message
	consumer *KafkaConsumer
}

// NewIterator returns a new Iterator for the consumer.
func (kc *KafkaConsumer) NewIterator() *Iterator {
	return &Iterator{
		messages: kc.messageChan,
		consumer: kc,
	}
}

// Messages returns the channel of Kafka messages.
func (it *Iterator) Messages() <-chan kafka.Message {
	return it.messages
}

// CommitOffset manually commits the offset of a message.
func (it *Iterator) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return it.consumer.CommitOffset(ctx, msg)
}
