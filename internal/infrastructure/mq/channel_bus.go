package mq

import (
	"context"
	"errors"
	"sync"

	"evo_chat_server/pkg/constants"

	"go.uber.org/zap"
)

var errBusClosed = errors.New("bus closed")

// ChannelBus in-process bus for single node deployments.
type ChannelBus struct {
	transmit chan *Envelope
	quit     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewChannelBus creates a channel bus; size <= 0 uses constants.CHANNEL_SIZE.
func NewChannelBus(size int) *ChannelBus {
	if size <= 0 {
		size = constants.CHANNEL_SIZE
	}
	return &ChannelBus{
		transmit: make(chan *Envelope, size),
		quit:     make(chan struct{}),
	}
}

// Publish queues the envelope, waiting for room while ctx allows.
func (b *ChannelBus) Publish(ctx context.Context, env *Envelope) error {
	select {
	case <-b.quit:
		return errBusClosed
	default:
	}
	select {
	case b.transmit <- env:
		return nil
	case <-b.quit:
		return errBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBus) Subscribe(h Handler) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case env := <-b.transmit:
				b.dispatch(h, env)
			case <-b.quit:
				return
			}
		}
	}()
	return nil
}

func (b *ChannelBus) dispatch(h Handler, env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("channel bus handler panic", zap.Any("panic", r), zap.String("event", env.Event))
		}
	}()
	h(context.Background(), env)
}

func (b *ChannelBus) Close() error {
	b.once.Do(func() {
		close(b.quit)
	})
	b.wg.Wait()
	return nil
}
