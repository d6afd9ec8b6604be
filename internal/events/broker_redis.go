package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"lasdesk/internal/shared/telemetry"
)

// DefaultChannel is the Redis pub/sub channel process_log events travel on.
const DefaultChannel = "lasdesk:process_log"

var errSubscriptionLost = errors.New("events: redis subscription lost")

// RedisBroker fans events out across API and worker processes through
// Redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(client *redis.Client, channel string) (*RedisBroker, error) {
	if client == nil {
		return nil, errors.New("events: redis client is nil")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel}, nil
}

// DialRedis parses url, pings with backoff and returns a broker.
func DialRedis(ctx context.Context, url string, attempts int) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			telemetry.Warn("events.redis_ping_failed", map[string]any{"error": err.Error()})
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBroker(client, "")
}

func (b *RedisBroker) Publish(ctx context.Context, ev ProcessLog) error {
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{
		pubsub: pubsub,
		cancel: cancel,
		events: make(chan ProcessLog, subscriberBuffer),
		done:   make(chan struct{}),
	}
	go sub.pump(subCtx, pubsub.Channel())
	return sub, nil
}

// Close closes the underlying client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	events chan ProcessLog
	done   chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func (s *redisSubscription) pump(ctx context.Context, messages <-chan *redis.Message) {
	defer close(s.done)
	defer close(s.events)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() == nil {
					s.setErr(errSubscriptionLost)
				}
				return
			}
			if msg == nil {
				continue
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				telemetry.Debug("events.decode_failed", map[string]any{"error": err.Error()})
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

func (s *redisSubscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *redisSubscription) Events() <-chan ProcessLog { return s.events }
func (s *redisSubscription) Done() <-chan struct{}     { return s.done }

func (s *redisSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}

var (
	_ Broker = (*MemoryBroker)(nil)
	_ Broker = (*RedisBroker)(nil)
)

// Ping checks the Redis connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
