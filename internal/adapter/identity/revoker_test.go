package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHTTPClient struct {
	lastReq *http.Request
	status  int
	err     error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}, nil
}

func TestRevoker_PostsRevocation(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusAccepted}
	r := NewRevoker("http://identity.internal", nil, client, zerolog.Nop())

	err := r.Revoke(context.Background(), "contract-1", "agency-1")
	require.NoError(t, err)

	require.NotNil(t, client.lastReq)
	assert.Equal(t, http.MethodPost, client.lastReq.Method)
	assert.Equal(t, "http://identity.internal/api/v1/access/revocations", client.lastReq.URL.String())
	assert.Equal(t, "application/json", client.lastReq.Header.Get("Content-Type"))

	body, _ := io.ReadAll(client.lastReq.Body)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "contract-1", payload["contract_ref"])
	assert.Equal(t, "agency-1", payload["grantee_ref"])
}

func TestRevoker_Non2xxIsError(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusBadGateway}
	r := NewRevoker("http://identity.internal", nil, client, zerolog.Nop())

	err := r.Revoke(context.Background(), "contract-1", "agency-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRevoker_TransportErrorSurfaces(t *testing.T) {
	client := &fakeHTTPClient{err: errors.New("connection refused")}
	r := NewRevoker("http://identity.internal", nil, client, zerolog.Nop())

	err := r.Revoke(context.Background(), "contract-1", "agency-1")
	require.Error(t, err)
}

func TestNoopRevoker_AlwaysSucceeds(t *testing.T) {
	r := NewNoopRevoker(zerolog.Nop())
	require.NoError(t, r.Revoke(context.Background(), "contract-1", "agency-1"))
}
