package rates_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/config"
	"github.com/tm-quang/bofinance-sub000/internal/rates"
)

const usdTable = `{"result":"success","base_code":"USD","rates":{"USD":1,"VND":26000,"EUR":0.9}}`

func newClient(t *testing.T, handler http.HandlerFunc) *rates.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return rates.NewClient(config.RatesConfig{URL: srv.URL, Base: "USD", TTLMinutes: 60}, cache.New())
}

func TestLatestServedFromCache(t *testing.T) {
	t.Parallel()

	calls := 0
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/USD", r.URL.Path)
		fmt.Fprint(w, usdTable)
	})

	table, err := client.Latest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
	assert.Equal(t, float64(26000), table.Rates["VND"])

	// Case folds onto the same cache entry.
	_, err = client.Latest(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConvert(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, usdTable)
	})
	ctx := context.Background()

	got, err := client.Convert(ctx, 2, "USD", "VND")
	require.NoError(t, err)
	assert.Equal(t, int64(52000), got)

	// Same currency never leaves the process.
	got, err = client.Convert(ctx, 123, "VND", "VND")
	require.NoError(t, err)
	assert.Equal(t, int64(123), got)

	_, err = client.Convert(ctx, 1, "USD", "XYZ")
	assert.True(t, apperr.IsInvalid(err))
}

func TestLatestUpstreamFailureNotCached(t *testing.T) {
	t.Parallel()

	broken := true
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if broken {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, usdTable)
	})
	ctx := context.Background()

	_, err := client.Latest(ctx, "USD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))

	// The failure must not poison the cache.
	broken = false
	table, err := client.Latest(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
}

func TestLatestRejectsErrorPayload(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"error","error-type":"unsupported-code"}`)
	})

	_, err := client.Latest(context.Background(), "ZZZ")
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))
}
