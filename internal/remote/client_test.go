package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillworks/posedge/pkg/config"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
)

func testConfig(baseURL string) config.RemoteConfig {
	return config.RemoteConfig{
		BaseURL:       baseURL,
		CompanyPrefix: "acme",
		BranchCode:    "BR-01",
		UserID:        "till-3",
		Timeout:       2 * time.Second,
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	}
}

func TestFetchCatalogSendsOperationFields(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		seen.Store(r.PostForm)
		json.NewEncoder(w).Encode([]map[string]any{
			{"stock_id": "SKU-1", "description": "Bolt", "rate": "3.50"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	items, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "SKU-1", items[0].StockID)

	form := seen.Load().(url.Values)
	require.Equal(t, "get_items", form.Get("tp"))
	require.Equal(t, "acme", form.Get("comp"))
	require.Equal(t, "BR-01", form.Get("branch"))
	require.Equal(t, "till-3", form.Get("user"))
}

func TestSubmitSaleAckMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(saleAck{UID: "other", Saved: true})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	err = client.SubmitSale(context.Background(), "uid-1", json.RawMessage(`{}`))
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestSubmitSaleSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "save_sale", r.PostForm.Get("tp"))
		require.Equal(t, "uid-1", r.PostForm.Get("uid"))
		json.NewEncoder(w).Encode(saleAck{UID: "uid-1", Saved: true})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	require.NoError(t, client.SubmitSale(context.Background(), "uid-1", json.RawMessage(`{"total":"10"}`)))
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]string{"customer request", "awaiting payment"})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	reasons, err := client.FetchHoldReasons(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"customer request", "awaiting payment"}, reasons)
	require.Equal(t, int32(2), calls.Load())
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.FetchCatalog(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchItemBalanceParsesDelimitedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "SKU-9", r.PostForm.Get("stock_id"))
		w.Write([]byte("4.25|12|exclusive"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	res, err := client.FetchItemBalance(context.Background(), "SKU-9")
	require.NoError(t, err)
	require.Equal(t, BalanceOK, res.Status)
	require.Equal(t, "exclusive", res.Balance.TaxMode)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.RemoteConfig{}, nil)
	require.Error(t, err)
}
