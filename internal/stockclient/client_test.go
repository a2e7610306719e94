package stockclient

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() (string, error) { return string(s), nil }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestClientProduct(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/api/products/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"Keyboard","description":"mechanical","price":120.5,"stock":10}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), staticTokens("tkn"), testLogger())

	p, err := c.Product(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Bearer tkn", gotAuth)
	require.Equal(t, Product{ID: 7, Name: "Keyboard", Description: "mechanical", Price: 120.5, Stock: 10}, p)
}

func TestClientProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), nil, testLogger())

	_, err := c.Product(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientProductUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), nil, testLogger())

	_, err := c.Product(context.Background(), 7)
	require.ErrorContains(t, err, "unexpected status 500")
}

func TestVerifyStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"Keyboard","price":120.5,"stock":3}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), nil, testLogger())

	require.NoError(t, c.VerifyStock(context.Background(), 7, 3))
	require.ErrorIs(t, c.VerifyStock(context.Background(), 7, 4), ErrInsufficientStock)
}
