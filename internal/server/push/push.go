// Package push delivers live events to connected users over per-user Redis
// pub/sub channels.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:"

// Pusher emits an event to whoever is listening for userID. Delivery is best
// effort: nobody listening is not an error.
type Pusher interface {
	Emit(ctx context.Context, userID, event string, payload any) error
}

// Message is the envelope published on a user channel.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Channel returns the pub/sub channel name of userID.
func Channel(userID string) string {
	return channelPrefix + userID
}

type RedisPusher struct {
	rdb redis.UniversalClient
}

func NewRedisPusher(rdb redis.UniversalClient) *RedisPusher {
	return &RedisPusher{rdb: rdb}
}

func (p *RedisPusher) Emit(ctx context.Context, userID, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := json.Marshal(Message{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(userID), msg).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Subscription is a live feed of one user's messages. C is closed after
// Close or when the subscribing context ends.
type Subscription struct {
	C    <-chan Message
	sub  *redis.PubSub
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Close stops the feed and releases the Redis connection. It is safe to call
// more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.sub.Close()
		<-s.done
	})
	return err
}

// Subscribe opens a feed for userID. It returns once Redis has confirmed the
// subscription, so nothing emitted afterwards is missed.
func (p *RedisPusher) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	sub := p.rdb.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis error: %w", err)
	}

	out := make(chan Message)
	s := &Subscription{C: out, sub: sub, stop: make(chan struct{}), done: make(chan struct{})}
	in := sub.Channel()

	go func() {
		defer close(s.done)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-s.stop:
					return
				}
			}
		}
	}()

	return s, nil
}
