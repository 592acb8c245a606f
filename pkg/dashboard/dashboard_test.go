package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/martxel/setra/pkg/setup"
	setupinmem "github.com/martxel/setra/pkg/setup/inmem"
	"github.com/martxel/setra/pkg/trade"
	tradeinmem "github.com/martxel/setra/pkg/trade/inmem"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, setup.Store, trade.Store) {
	t.Helper()
	setups := setupinmem.New()
	trades := &tradeinmem.Store{}
	s := New(log.Println, "127.0.0.1:0", setups, trades)
	return s, setups, trades
}

func TestHealth(t *testing.T) {
	s, _, _ := newServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListSetups(t *testing.T) {
	s, setups, _ := newServer(t)
	day := time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC)
	trigger, err := decimal.NewFromString("590")
	require.NoError(t, err)
	_, err = setups.Save(day, "alerts", &setup.TickerSetup{
		Symbol: "SPY",
		Signals: []*setup.Signal{{
			Category:   setup.Breakout,
			Comparison: setup.Above,
			Trigger:    trigger,
		}},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/setups?day=2025-05-14", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []*setup.Stored
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "SPY", got[0].Setup.Symbol)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/setups?day=2025-05-15", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/setups?day=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTrades(t *testing.T) {
	s, _, trades := newServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	open := &trade.Trade{StartTime: time.Now().UTC(), Symbol: "NVDA"}
	closed := &trade.Trade{
		StartTime: time.Now().UTC().Add(-time.Hour),
		Symbol:    "SPY",
		EndTime:   time.Now().UTC(),
	}
	require.NoError(t, trades.Update(open))
	require.NoError(t, trades.Update(closed))

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []*trade.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "NVDA", got[0].Symbol)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades?finished=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "SPY", got[0].Symbol)
}
