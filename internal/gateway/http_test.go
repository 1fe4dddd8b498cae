package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"spotit/internal/deck"
	"spotit/pkg/config"
)

func newTestGatewayHTTP(t *testing.T) *Gateway {
	cfg := config.FrontendConfig{
		ID:            1,
		ListenAddr:    "127.0.0.1:0",
		Siblings:      map[int]string{},
		Backends:      map[int]string{},
		ExpectedCount: 2,
	}
	return New(cfg, zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, joinResponse) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp joinResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestHTTP_LeaderGate_LeaderPassesThrough(t *testing.T) {
	g := newTestGatewayHTTP(t)
	r := NewRouter(g)

	req := httptest.NewRequest(http.MethodPost, "/join", bytes.NewBufferString(`{"name":"alice"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "single front-end with no siblings is always leader")
}

func TestHTTP_LeaderGate_BackupGets503Page(t *testing.T) {
	// A live lower-id sibling answering /healthz, so this gateway's election
	// tick steps down to backup.
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer sibling.Close()

	g := New(config.FrontendConfig{
		ID:            2,
		ListenAddr:    "127.0.0.1:0",
		Siblings:      map[int]string{1: sibling.Listener.Addr().String()},
		Backends:      map[int]string{},
		ExpectedCount: 2,
	}, zerolog.Nop())
	g.elector.Tick(context.Background(), config.FrontendProbeDeadline)
	require.False(t, g.IsLeader())

	r := NewRouter(g)
	req := httptest.NewRequest(http.MethodPost, "/join", bytes.NewBufferString(`{"name":"alice"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connecting to leader")
}

func TestHTTP_Healthz_AlwaysOKEvenAsBackup(t *testing.T) {
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer sibling.Close()

	g := New(config.FrontendConfig{
		ID:         2,
		ListenAddr: "127.0.0.1:0",
		Siblings:   map[int]string{1: sibling.Listener.Addr().String()},
	}, zerolog.Nop())
	g.elector.Tick(context.Background(), config.FrontendProbeDeadline)
	require.False(t, g.IsLeader())

	r := NewRouter(g)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_JoinPollClick_FullFlow(t *testing.T) {
	g := newTestGatewayHTTP(t)
	r := NewRouter(g)

	_, aliceResp := doJSON(t, r, http.MethodPost, "/join", joinRequest{Name: "alice"})
	require.True(t, aliceResp.Success)
	require.NotEmpty(t, aliceResp.SessionID)

	_, bobResp := doJSON(t, r, http.MethodPost, "/join", joinRequest{Name: "bob"})
	require.True(t, bobResp.Success)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/poll-game-state?session_id="+aliceResp.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var poll actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &poll))
	require.True(t, poll.Success)
	require.NotNil(t, poll.View)
	require.True(t, poll.View.Started)
	require.NotEmpty(t, poll.View.MyTopCard)

	var clickSym string
	for _, p := range poll.View.MyTopCard {
		for _, cp := range poll.View.CenterHead {
			if p.Emoji == cp.Emoji {
				clickSym = p.Emoji
			}
		}
	}
	require.NotEmpty(t, clickSym, "top card and center head must share exactly one symbol")

	rec, clickResp := doClick(t, r, "/click-player", clickRequest{SessionID: aliceResp.SessionID, Emoji: clickSym})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, clickResp.Success)

	rec, joinErr := doJSON(t, r, http.MethodPost, "/join", joinRequest{Name: "alice"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "name_taken", joinErr.Error)
}

func doClick(t *testing.T, h http.Handler, path string, req clickRequest) (*httptest.ResponseRecorder, actionResponse) {
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	httpReq := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httpReq)
	var resp actionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestSymbolFromEmoji_UnknownGlyphIsBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := symbolFromEmoji(rec, "not-a-glyph")
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymbolFromEmoji_KnownGlyphResolves(t *testing.T) {
	rec := httptest.NewRecorder()
	sym, ok := symbolFromEmoji(rec, deck.Glyph(deck.Symbol(3)))
	require.True(t, ok)
	require.Equal(t, deck.Symbol(3), sym)
}
