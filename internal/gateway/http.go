package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"spotit/internal/deck"
	"spotit/internal/engine"
)

const backupPage = `<!doctype html><html><head><meta http-equiv="refresh" content="5"></head>
<body><p>connecting to leader...</p></body></html>`

// NewRouter wires the browser-facing HTTP surface onto gorilla/mux, the same
// router library the back-end Control API uses.
func NewRouter(g *Gateway) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", g.handleHealthz).Methods(http.MethodGet)

	r.Use(g.leaderGateMiddleware)
	r.HandleFunc("/join", g.handleJoin).Methods(http.MethodPost)
	r.HandleFunc("/click-player", g.handleClickPlayer).Methods(http.MethodPost)
	r.HandleFunc("/click-center", g.handleClickCenter).Methods(http.MethodPost)
	r.HandleFunc("/shuffle", g.handleShuffle).Methods(http.MethodPost)
	r.HandleFunc("/rotate", g.handleRotate).Methods(http.MethodPost)
	r.HandleFunc("/request-restart", g.handleRequestRestart).Methods(http.MethodPost)
	r.HandleFunc("/decline-restart", g.handleDeclineRestart).Methods(http.MethodPost)
	r.HandleFunc("/poll-game-state", g.handlePoll).Methods(http.MethodGet)
	return r
}

// leaderGateMiddleware gates every non-health request on front-end
// leadership: a backup answers 503 with a human-readable "connecting to
// leader" page carrying a 5 s auto-refresh hint.
func (g *Gateway) leaderGateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !g.IsLeader() {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(backupPage))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case err == engine.ErrNameTaken:
		writeJSON(w, http.StatusConflict, actionResponse{Success: false, Error: "name_taken"})
	case err == engine.ErrLobbyFull:
		writeJSON(w, http.StatusConflict, actionResponse{Success: false, Error: "lobby_full"})
	case err == engine.ErrGameOver:
		writeJSON(w, http.StatusConflict, actionResponse{Success: false, Error: "game_over"})
	default:
		if rt, ok := err.(*engine.RestartThrottledError); ok {
			writeJSON(w, http.StatusTooManyRequests, actionResponse{
				Success: false, Error: "restart_throttled", CooldownRemainingMS: rt.Remaining.Milliseconds(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
	}
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
	View      *view  `json:"view,omitempty"`
}

func (g *Gateway) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, joinResponse{Success: false, Error: "invalid_request"})
		return
	}
	sessionID, err := g.game.Join(req.Name)
	if err != nil {
		switch err {
		case engine.ErrNameTaken:
			writeJSON(w, http.StatusConflict, joinResponse{Success: false, Error: "name_taken"})
		case engine.ErrLobbyFull:
			writeJSON(w, http.StatusConflict, joinResponse{Success: false, Error: "lobby_full"})
		default:
			writeJSON(w, http.StatusBadRequest, joinResponse{Success: false, Error: "invalid_request"})
		}
		return
	}
	g.pushSnapshot(r.Context())
	writeJSON(w, http.StatusOK, joinResponse{Success: true, SessionID: sessionID, View: buildView(g.game.ViewFor(sessionID))})
}

type clickRequest struct {
	SessionID string `json:"session_id"`
	Emoji     string `json:"emoji"`
}

// actionResponse is the common shape for every mutating endpoint.
type actionResponse struct {
	Success             bool   `json:"success"`
	Error               string `json:"error,omitempty"`
	CooldownRemainingMS int64  `json:"cooldown_remaining_ms,omitempty"`
	Outcome             string `json:"outcome,omitempty"`
	ClearHighlight      bool   `json:"clear_highlight,omitempty"`
	View                *view  `json:"view,omitempty"`
}

func symbolFromEmoji(w http.ResponseWriter, emoji string) (deck.Symbol, bool) {
	sym, ok := deck.SymbolForGlyph(emoji)
	if !ok {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return 0, false
	}
	return sym, true
}

func (g *Gateway) handleClickPlayer(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return
	}
	sym, ok := symbolFromEmoji(w, req.Emoji)
	if !ok {
		return
	}
	out, err := g.game.ClickPlayerSymbol(req.SessionID, sym)
	g.respondClick(w, r, req.SessionID, out, err)
}

func (g *Gateway) handleClickCenter(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return
	}
	sym, ok := symbolFromEmoji(w, req.Emoji)
	if !ok {
		return
	}
	out, err := g.game.ClickCenterSymbol(req.SessionID, sym)
	g.respondClick(w, r, req.SessionID, out, err)
}

func (g *Gateway) respondClick(w http.ResponseWriter, r *http.Request, sessionID string, out engine.ClickOutcome, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	g.pushSnapshot(r.Context())
	resp := actionResponse{
		Success:        true,
		Outcome:        string(out.Kind),
		ClearHighlight: out.Kind == engine.OutcomeMatch || out.Kind == engine.OutcomeNoMatch,
		View:           buildView(g.game.ViewFor(sessionID)),
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionOnlyRequest struct {
	SessionID string `json:"session_id"`
}

func (g *Gateway) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := g.game.Shuffle(); err != nil {
		writeEngineError(w, err)
		return
	}
	g.pushSnapshot(r.Context())
	writeJSON(w, http.StatusOK, actionResponse{Success: true, View: buildView(g.game.ViewFor(req.SessionID))})
}

type rotateRequest struct {
	SessionID string `json:"session_id"`
	Dir       string `json:"dir"`
}

func (g *Gateway) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return
	}
	dir := engine.RotateDir(req.Dir)
	if err := g.game.Rotate(req.SessionID, dir); err != nil {
		writeEngineError(w, err)
		return
	}
	g.pushSnapshot(r.Context())
	writeJSON(w, http.StatusOK, actionResponse{Success: true, View: buildView(g.game.ViewFor(req.SessionID))})
}

func (g *Gateway) handleRequestRestart(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return
	}
	if err := g.game.RequestRestart(req.SessionID); err != nil {
		writeEngineError(w, err)
		return
	}
	g.pushSnapshot(r.Context())
	writeJSON(w, http.StatusOK, actionResponse{Success: true, View: buildView(g.game.ViewFor(req.SessionID))})
}

func (g *Gateway) handleDeclineRestart(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Success: false, Error: "invalid_request"})
		return
	}
	if err := g.game.DeclineRestart(req.SessionID); err != nil {
		writeEngineError(w, err)
		return
	}
	g.pushSnapshot(r.Context())
	writeJSON(w, http.StatusOK, actionResponse{Success: true, View: buildView(g.game.ViewFor(req.SessionID))})
}

func (g *Gateway) handlePoll(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	writeJSON(w, http.StatusOK, actionResponse{Success: true, View: buildView(g.game.ViewFor(sessionID))})
}
