package handler

import (
	"io"
	"time"

	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

const feedHeartbeatInterval = 15 * time.Second

// FeedHandler streams balance projection events over SSE.
type FeedHandler struct {
	ledgerSvc  ports.LedgerService
	subscriber ports.BalanceSubscriber
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(ledgerSvc ports.LedgerService, subscriber ports.BalanceSubscriber) *FeedHandler {
	return &FeedHandler{
		ledgerSvc:  ledgerSvc,
		subscriber: subscriber,
	}
}

// Stream handles GET /api/v1/wallets/:owner_ref/feed. It sends the current
// projection as a snapshot event, then forwards balance events as they are
// published. Delivery is best-effort; clients reconcile through the snapshot
// on reconnect.
func (h *FeedHandler) Stream(c *gin.Context) {
	wallet, err := h.ledgerSvc.GetWalletByOwner(c.Request.Context(), c.Param("owner_ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	events, cancel, err := h.subscriber.Subscribe(c.Request.Context(), wallet.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", toWalletResponse(wallet))
	c.Writer.Flush()

	heartbeat := time.NewTicker(feedHeartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("balance", evt)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
