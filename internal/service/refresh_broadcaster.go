package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-feedback-insights/internal/observability"
)

// Invalidator drops locally cached state.
type Invalidator interface {
	Invalidate()
}

// RefreshBroadcaster tells other replicas to drop their snapshot when one replica refreshes.
type RefreshBroadcaster interface {
	Publish(ctx context.Context) error
	Start(ctx context.Context) error
}

type refreshEvent struct {
	Source string    `json:"source"`
	SentAt time.Time `json:"sent_at"`
}

type refreshBroadcaster struct {
	target       Invalidator
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewRefreshBroadcaster builds a broadcaster over whichever transports are configured.
// Either client may be nil; with both nil Publish and Start are no-ops.
func NewRefreshBroadcaster(target Invalidator, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) RefreshBroadcaster {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":refresh"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".refresh"
	}

	return &refreshBroadcaster{
		target:       target,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "refresh_broadcaster").Logger(),
	}
}

func (b *refreshBroadcaster) Publish(ctx context.Context) error {
	payload, err := json.Marshal(refreshEvent{Source: b.nodeID, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis publish: %w", err))
		} else {
			observability.RefreshBroadcasts().WithLabelValues("published", "redis").Inc()
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, fmt.Errorf("nats publish: %w", err))
		} else {
			observability.RefreshBroadcasts().WithLabelValues("published", "nats").Inc()
		}
	}

	return errors.Join(errs...)
}

// Start subscribes to the configured transports. Subscriptions are confirmed
// before Start returns and are released when ctx is cancelled.
func (b *refreshBroadcaster) Start(ctx context.Context) error {
	if b.redis != nil && b.redisChannel != "" {
		pubsub := b.redis.Subscribe(ctx, b.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return fmt.Errorf("subscribe to redis refresh channel: %w", err)
		}
		go b.consumeRedis(ctx, pubsub)
	}

	if b.nats != nil && b.natsSubject != "" {
		sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
			b.handleEvent(msg.Data, "nats")
		})
		if err != nil {
			return fmt.Errorf("subscribe to nats refresh subject: %w", err)
		}

		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				b.logger.Warn().Err(err).Msg("failed to drain refresh nats subscription")
			}
		}()
	}

	return nil
}

func (b *refreshBroadcaster) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			b.logger.Error().Err(err).Msg("refresh redis subscription closed")
			return
		}
		b.handleEvent([]byte(msg.Payload), "redis")
	}
}

func (b *refreshBroadcaster) handleEvent(payload []byte, transport string) {
	var event refreshEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid refresh event payload")
		return
	}

	if event.Source == b.nodeID {
		return
	}

	observability.RefreshBroadcasts().WithLabelValues("received", transport).Inc()
	b.target.Invalidate()
	b.logger.Debug().Str("source", event.Source).Str("transport", transport).Msg("snapshot invalidated by peer")
}
