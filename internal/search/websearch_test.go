package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospect-labs/scout/internal/domain"
)

func TestWebSearchGatherer(t *testing.T) {
	var gotAuth string
	var gotReq searchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://example.com/a", "snippet": "manual invoicing mentioned", "credibility": 0.8},
				{"url": "https://example.com/b", "snippet": "job posting for ops automation"},
				{"url": "https://example.com/c", "snippet": ""},
			},
		})
	}))
	defer srv.Close()

	g := NewWebSearchGatherer(srv.URL, "test-key")
	h := domain.Hypothesis{
		ID:       uuid.New(),
		EntityID: "acme-corp",
		Category: domain.CategoryAutomation,
		Claim:    "needs invoice automation",
	}

	evidence, err := g.Search(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Contains(t, gotReq.Query, "acme-corp")
	assert.Contains(t, gotReq.Query, "needs invoice automation")

	require.Len(t, evidence, 2, "empty snippets are dropped")
	assert.Equal(t, h.ID, evidence[0].HypothesisID)
	assert.Equal(t, 0.8, evidence[0].Credibility)
	// Missing credibility defaults to the neutral midpoint.
	assert.Equal(t, 0.5, evidence[1].Credibility)
}

func TestWebSearchGathererUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewWebSearchGatherer(srv.URL, "")
	_, err := g.Search(context.Background(), domain.Hypothesis{Claim: "x"})
	require.Error(t, err)
}

func TestNewGatherer(t *testing.T) {
	_, err := NewGatherer("websearch", "", "")
	require.Error(t, err, "websearch requires an endpoint")

	g, err := NewGatherer("mock", "", "")
	require.NoError(t, err)
	assert.IsType(t, &MockGatherer{}, g)

	_, err = NewGatherer("altavista", "", "")
	require.Error(t, err)
}
