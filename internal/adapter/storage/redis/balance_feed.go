package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// BalanceFeed implements ports.BalancePublisher and ports.BalanceSubscriber
// over Redis pub/sub, one channel per wallet. The feed is a hint, not the
// state: delivery is at-most-once and a missed push is recovered by polling
// the wallet query API. Consumers discard stale pushes by comparing the
// wallet version.
type BalanceFeed struct {
	client *goredis.Client
	prefix string
	log    zerolog.Logger
}

// NewBalanceFeed creates a Redis-backed balance projection feed.
func NewBalanceFeed(client *goredis.Client, log zerolog.Logger) *BalanceFeed {
	return &BalanceFeed{
		client: client,
		prefix: "balance:",
		log:    log,
	}
}

func (f *BalanceFeed) channel(walletID uuid.UUID) string {
	return f.prefix + walletID.String()
}

// Publish pushes a balance event to the wallet's channel.
func (f *BalanceFeed) Publish(ctx context.Context, event domain.BalanceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal balance event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(event.WalletID), payload).Err(); err != nil {
		return fmt.Errorf("publish balance event: %w", err)
	}
	return nil
}

// Subscribe delivers balance events for one wallet until cancel is called.
// Malformed payloads are logged and skipped.
func (f *BalanceFeed) Subscribe(ctx context.Context, walletID uuid.UUID) (<-chan domain.BalanceEvent, func(), error) {
	sub := f.client.Subscribe(ctx, f.channel(walletID))

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe balance feed: %w", err)
	}

	out := make(chan domain.BalanceEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var evt domain.BalanceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				f.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("balance feed: dropping malformed event")
				continue
			}
			select {
			case out <- evt:
			default:
				// Slow consumer: drop rather than block the feed.
				f.log.Debug().Str("wallet_id", walletID.String()).Msg("balance feed: dropping event for slow consumer")
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
