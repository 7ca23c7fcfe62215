package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	logPrefix         = "messaging"
	subscriberBufSize = 100

	receiveRetryInitial = 100 * time.Millisecond
	receiveRetryMax     = 5 * time.Second
)

// RedisBroker fans messages out through redis pub/sub, so every api
// instance sharing the redis sees the same user topics
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to the redis url and checks the connection
func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBroker{client: client}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe listens on the topic until ctx is done. The subscription is
// confirmed before returning so nothing published afterwards is missed.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	pubsub := b.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	msgChan := make(chan []byte, subscriberBufSize)

	go func() {
		defer func() {
			pubsub.Close()
			close(msgChan)
		}()

		retry := newReceiveBackOff()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				wait := retry.NextBackOff()
				log.WithField("prefix", logPrefix).WithError(err).Warnf("receive message from %s, retry in %s", topic, wait)
				if !sleep(ctx, wait) {
					return
				}
				continue
			}
			retry.Reset()

			select {
			case msgChan <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

// newReceiveBackOff spaces out receive retries while redis is unreachable.
// It never gives up, the subscription lives as long as its context.
func newReceiveBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = receiveRetryInitial
	b.MaxInterval = receiveRetryMax
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// sleep waits for d unless ctx is done first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
