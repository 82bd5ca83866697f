package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsAuthorizedJSONRequest(t *testing.T) {
	t.Parallel()

	var (
		gotMethod  string
		gotPath    string
		gotBody    string
		gotHeaders http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/v1/", server.Client(), zerolog.Nop())
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), ports.Request{
		Method:        http.MethodPost,
		Path:          "/items",
		Body:          []byte(`{"title":"x"}`),
		Authorization: "Bearer at-1",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":"1"}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/items", gotPath)
	assert.Equal(t, `{"title":"x"}`, gotBody)
	assert.Equal(t, "Bearer at-1", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
	assert.True(t, strings.HasPrefix(gotHeaders.Get("User-Agent"), "ofs/"))

	_, err = ulid.ParseStrict(gotHeaders.Get(headerRequestID))
	assert.NoError(t, err)
}

func TestClientReturnsErrorStatusesAsResponses(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client(), zerolog.Nop())
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), ports.Request{Path: "items"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClientRejectsOversizedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxResponseBytes+1)))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client(), zerolog.Nop())
	require.NoError(t, err)

	_, err = client.Do(context.Background(), ports.Request{Path: "/items"})
	require.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClientHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL, server.Client(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Do(ctx, ports.Request{Path: "/items"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientUnreachableHostIsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := NewClient(baseURL, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.Do(context.Background(), ports.Request{Path: "/items"})
	require.Error(t, err)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient("ftp://api.example.com", nil, zerolog.Nop())
	require.ErrorContains(t, err, "http or https")

	_, err = NewClient("https://", nil, zerolog.Nop())
	require.ErrorContains(t, err, "host is required")
}
