package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tryDo is the goroutine-safe request helper: it never fails the test,
// callers inspect the returned status and body themselves.
func (a *testApp) tryDo(method, path string, body interface{}) (int, map[string]interface{}, error) {
	var reader *bytes.Reader
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	reader = bytes.NewReader(payload)

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.server.Client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var parsed map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, parsed, nil
}

// Every mutation runs through the serialized transactor, so these tests have
// deterministic outcomes: no lost updates, no double settlement, no negative
// balances — only the interleaving order varies.

func TestConcurrentReviewDecisions_SettleOnce(t *testing.T) {
	app := newTestApp(t)

	app.topUp(t, "client-1", "USER", 10000, "prov-tx-1")
	code, _ := app.do(t, http.MethodPost, "/api/v1/holds", map[string]interface{}{
		"contract_ref":     "contract-1",
		"payer_owner_ref":  "client-1",
		"payer_owner_kind": "USER",
		"payee_owner_ref":  "agency-1",
		"payee_owner_kind": "AGENCY",
		"amount":           6000,
		"currency":         "USD",
		"idempotency_key":  "hold-key-1",
	})
	require.Equal(t, http.StatusCreated, code)

	decision := map[string]interface{}{
		"target_ref":   "contract-1",
		"decision_id":  "dec-1",
		"decision":     "APPROVED",
		"reviewer_ref": "reviewer-1",
	}

	const workers = 16
	var wg sync.WaitGroup
	var released atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, resp, err := app.tryDo(http.MethodPost, "/api/v1/reviews", decision)
			if err != nil || code != http.StatusOK {
				return
			}
			if d, ok := resp["data"].(map[string]interface{}); ok && d["outcome"] == "RELEASED" {
				released.Add(1)
			}
		}()
	}
	wg.Wait()

	t.Logf("concurrent decisions: %d/%d observed the release", released.Load(), workers)
	assert.Equal(t, int64(workers), released.Load(), "every replay of the decision should observe the release")

	// The payee was credited exactly once: 6000 minus the 2.5% fee.
	assert.Equal(t, int64(5850), app.walletBalance(t, "agency-1"))
	assert.Equal(t, int64(150), app.walletBalance(t, "platform"))

	// Exactly one release entry in the payee's ledger.
	code, resp := app.do(t, http.MethodGet, "/api/v1/wallets/agency-1/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	items := data(t, resp)["items"].([]interface{})
	releaseEntries := 0
	for _, raw := range items {
		if raw.(map[string]interface{})["kind"] == "ESCROW_RELEASE" {
			releaseEntries++
		}
	}
	assert.Equal(t, 1, releaseEntries)
}

func TestConcurrentTopUps_SameProviderTx_AppliesOnce(t *testing.T) {
	app := newTestApp(t)

	const workers = 16
	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _, err := app.tryDo(http.MethodPost, "/api/v1/topups", map[string]interface{}{
				"owner_ref":      "user-1",
				"owner_kind":     "USER",
				"currency":       "USD",
				"amount":         int64(5000),
				"provider_tx_id": "prov-tx-dup",
			})
			if err == nil && code == http.StatusCreated {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), succeeded.Load(), "duplicate confirmations should replay, not fail")
	assert.Equal(t, int64(5000), app.walletBalance(t, "user-1"), "the credit applies exactly once")
}

func TestConcurrentTopUps_DistinctProviderTx_AllApply(t *testing.T) {
	app := newTestApp(t)

	const workers = 20
	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code, _, err := app.tryDo(http.MethodPost, "/api/v1/topups", map[string]interface{}{
				"owner_ref":      "user-1",
				"owner_kind":     "USER",
				"currency":       "USD",
				"amount":         int64(100),
				"provider_tx_id": fmt.Sprintf("prov-tx-%d", n),
			})
			if err == nil && code == http.StatusCreated {
				succeeded.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(workers), succeeded.Load(), "all distinct top-ups should apply")
	assert.Equal(t, int64(workers*100), app.walletBalance(t, "user-1"))

	code, resp := app.do(t, http.MethodGet, "/api/v1/wallets/user-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(workers), data(t, resp)["version"], "each entry bumps the wallet version once")
}

func TestConcurrentHolds_NeverOverdraw(t *testing.T) {
	app := newTestApp(t)

	app.topUp(t, "client-1", "USER", 1000, "prov-tx-1")

	const workers = 10
	const holdAmount = 300
	var wg sync.WaitGroup
	var created, rejected atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code, _, err := app.tryDo(http.MethodPost, "/api/v1/holds", map[string]interface{}{
				"contract_ref":     fmt.Sprintf("contract-%d", n),
				"payer_owner_ref":  "client-1",
				"payer_owner_kind": "USER",
				"payee_owner_ref":  "agency-1",
				"payee_owner_kind": "AGENCY",
				"amount":           int64(holdAmount),
				"currency":         "USD",
				"idempotency_key":  fmt.Sprintf("hold-key-%d", n),
			})
			if err != nil {
				return
			}
			switch code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusPaymentRequired:
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	t.Logf("overdraw test: %d holds created, %d rejected", created.Load(), rejected.Load())

	// 1000 covers exactly three holds of 300.
	assert.Equal(t, int64(3), created.Load())
	assert.Equal(t, int64(workers-3), rejected.Load())
	assert.Equal(t, int64(100), app.walletBalance(t, "client-1"))
}
