package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"evo_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBus fanout over one kafka topic.
// Each node reads with its own consumer group, so every node sees every envelope.
type KafkaBus struct {
	writer  *kafka.Writer
	reader  *kafka.Reader
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{} // closed when the consumer goroutine returns
	reading atomic.Bool
}

// NewKafkaBus creates the writer and the per-node reader; connections are lazy.
func NewKafkaBus(conf config.BusConfig, nodeID string) *KafkaBus {
	timeout := conf.Timeout * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.KafkaHostPort),
			Topic:                  conf.KafkaTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{conf.KafkaHostPort},
			Topic:          conf.KafkaTopic,
			GroupID:        conf.KafkaGroupPrefix + "-" + nodeID,
			CommitInterval: timeout,
			StartOffset:    kafka.LastOffset,
		}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Publish keys by target so one room's events stay in one partition, in order.
func (b *KafkaBus) Publish(ctx context.Context, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(partitionKey(env)),
		Value: value,
	})
}

func (b *KafkaBus) Subscribe(h Handler) error {
	if !b.reading.CompareAndSwap(false, true) {
		return errors.New("kafka bus: already subscribed")
	}
	go func() {
		defer close(b.done)
		for {
			msg, err := b.reader.ReadMessage(b.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) || b.ctx.Err() != nil {
					return
				}
				zap.L().Error("kafka read", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			var env Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				zap.L().Warn("kafka: drop malformed envelope", zap.Int64("offset", msg.Offset), zap.Error(err))
				continue
			}
			h(b.ctx, &env)
		}
	}()
	return nil
}

// Close stops consumption, waits for the handler in flight and the reader's final commit,
// then flushes the writer.
func (b *KafkaBus) Close() error {
	b.cancel()
	var errs []error
	if err := b.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.reading.Load() {
		<-b.done
	}
	if err := b.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
