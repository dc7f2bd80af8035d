package redis

import (
	"context"
	"testing"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ==================== IdempotencyCache Tests ====================

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "top_up:prov-1", []byte(`{"id":"abc"}`), time.Hour))

	val, err := cache.Get(ctx, "top_up:prov-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"abc"}`), val)
}

func TestIdempotencyCache_MissingKeyReturnsNil(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	val, err := cache.Get(context.Background(), "never-set")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestIdempotencyCache_EntryExpires(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "resolve_hold:key-1", []byte("x"), time.Minute))

	mr.FastForward(2 * time.Minute)

	val, err := cache.Get(ctx, "resolve_hold:key-1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestIdempotencyCache_KeysAreNamespaced(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Hour))
	assert.True(t, mr.Exists("idempotency:k"))
}

// ==================== BalanceFeed Tests ====================

func TestBalanceFeed_PublishReachesSubscriber(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewBalanceFeed(client, zerolog.Nop())
	ctx := context.Background()

	walletID := uuid.New()
	events, cancel, err := feed.Subscribe(ctx, walletID)
	require.NoError(t, err)
	defer cancel()

	txID := uuid.New()
	require.NoError(t, feed.Publish(ctx, domain.BalanceEvent{
		WalletID:          walletID,
		OwnerRef:          "user-1",
		Balance:           1500,
		Version:           4,
		LastTransactionID: txID,
		At:                time.Now().UTC(),
	}))

	select {
	case evt := <-events:
		assert.Equal(t, walletID, evt.WalletID)
		assert.Equal(t, int64(1500), evt.Balance)
		assert.Equal(t, int64(4), evt.Version)
		assert.Equal(t, txID, evt.LastTransactionID)
	case <-time.After(2 * time.Second):
		t.Fatal("balance event never arrived")
	}
}

func TestBalanceFeed_SubscriberOnlySeesOwnWallet(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewBalanceFeed(client, zerolog.Nop())
	ctx := context.Background()

	mine := uuid.New()
	events, cancel, err := feed.Subscribe(ctx, mine)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, feed.Publish(ctx, domain.BalanceEvent{WalletID: uuid.New(), Balance: 1}))
	require.NoError(t, feed.Publish(ctx, domain.BalanceEvent{WalletID: mine, Balance: 2}))

	select {
	case evt := <-events:
		assert.Equal(t, mine, evt.WalletID)
		assert.Equal(t, int64(2), evt.Balance)
	case <-time.After(2 * time.Second):
		t.Fatal("balance event never arrived")
	}
}

func TestBalanceFeed_CancelClosesStream(t *testing.T) {
	_, client := newTestClient(t)
	feed := NewBalanceFeed(client, zerolog.Nop())

	events, cancel, err := feed.Subscribe(context.Background(), uuid.New())
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed")
	}
}
