// Package identity holds the client adapter for the external identity/access
// service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"escrow-settlement-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient abstracts the HTTP transport for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Revoker implements ports.AccessRevoker against the identity service's
// revocation endpoint.
type Revoker struct {
	baseURL string
	token   ports.TokenService
	client  HTTPClient
	log     zerolog.Logger
}

// NewRevoker creates an identity revocation client.
func NewRevoker(baseURL string, token ports.TokenService, client HTTPClient, log zerolog.Logger) *Revoker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Revoker{
		baseURL: baseURL,
		token:   token,
		client:  client,
		log:     log,
	}
}

type revocationRequest struct {
	ContractRef string `json:"contract_ref"`
	GranteeRef  string `json:"grantee_ref"`
}

// Revoke asks the identity service to revoke the grantee's access tied to the
// contract. Any non-2xx response is an error so the outbox retries it.
func (r *Revoker) Revoke(ctx context.Context, contractRef, granteeRef string) error {
	body, err := json.Marshal(revocationRequest{
		ContractRef: contractRef,
		GranteeRef:  granteeRef,
	})
	if err != nil {
		return fmt.Errorf("marshal revocation request: %w", err)
	}

	url := r.baseURL + "/api/v1/access/revocations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if r.token != nil {
		signed, _, err := r.token.Generate("escrow-settlement-engine")
		if err != nil {
			return fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("call identity service: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity service returned %d", resp.StatusCode)
	}
	return nil
}

// NoopRevoker is used when no identity service is configured. Revocations are
// logged and treated as delivered.
type NoopRevoker struct {
	log zerolog.Logger
}

// NewNoopRevoker creates a NoopRevoker.
func NewNoopRevoker(log zerolog.Logger) *NoopRevoker {
	return &NoopRevoker{log: log}
}

// Revoke logs the intent and succeeds.
func (r *NoopRevoker) Revoke(_ context.Context, contractRef, granteeRef string) error {
	r.log.Info().
		Str("contract_ref", contractRef).
		Str("grantee", granteeRef).
		Msg("identity service not configured, revocation logged only")
	return nil
}
