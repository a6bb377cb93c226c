package broker

import (
	"context"
	"fmt"
	"sync"

	"chatboard/pkg/envelope"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel carries board events between relay instances.
const Channel = "board:events"

type HandlerFunc func(envelope.Envelope)

// Broker fans events out to the other relay instances over redis pub/sub.
// Messages published by this instance are dropped on receipt.
type Broker struct {
	rdb      *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	origin   string
	handlers sync.Map
	log      *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		rdb:    rdb,
		ctx:    ctx,
		cancel: cancel,
		origin: uuid.NewString(),
		log:    log.Named("broker"),
	}
}

// Origin identifies this instance on the channel.
func (b *Broker) Origin() string {
	return b.origin
}

func (b *Broker) Publish(env envelope.Envelope) error {
	env.Origin = b.origin
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(b.ctx, Channel, data).Err()
}

// Subscribe starts delivering channel messages to the registered handlers.
// It returns once the subscription is confirmed by redis.
func (b *Broker) Subscribe() error {
	sub := b.rdb.Subscribe(b.ctx, Channel)
	if _, err := sub.Receive(b.ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (b *Broker) On(event string, fn HandlerFunc) {
	b.handlers.Store(event, fn)
}

func (b *Broker) Close() {
	b.cancel()
}

func (b *Broker) dispatch(payload []byte) {
	env, err := envelope.Unmarshal(payload)
	if err != nil {
		b.log.Warn("undecodable message", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	if fn, ok := b.handlers.Load(env.Event); ok {
		fn.(HandlerFunc)(env)
	}
}
