// Package controlapi is the back-end Control API: the HTTP+JSON RPC surface
// one cluster node exposes to its peers and to front-end gateways, one JSON
// request/response struct per RPC, routed with gorilla/mux.
package controlapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"spotit/pkg/config"
)

// ErrNotLeader is returned by a Node's SaveAndReplicate hook when this node
// currently believes itself a backup; the save-snapshot handler then answers
// success=false.
var ErrNotLeader = errors.New("not leader")

// Node is the minimal surface controlapi needs from the cluster node wiring:
// current leader info and local/replicated store access. internal/cluster
// implements this against the real Elector/Store/replication.Leader.
type Node struct {
	GetLeaderAddr func() string
	IsLeader      func() bool
	// SaveAndReplicate handles a caller's SaveSnapshot: write locally then
	// fan out to backups (replication.Leader.SaveSnapshot already bounds
	// each peer push by its own deadline and fails the caller only when the
	// local write fails).
	SaveAndReplicate func(data []byte) error
	// SaveLocal handles a peer's ReplicateSaveSnapshot: write locally only.
	SaveLocal func(data []byte) error
	LoadLocal func() ([]byte, error)
}

type leaderInfoResponse struct {
	Info string `json:"info"`
}

// saveSnapshotRequest carries the raw snapshot document. encoding/json
// base64-encodes/decodes []byte automatically, so the snapshot_bytes wire
// field needs no separate codec.
type saveSnapshotRequest struct {
	SnapshotBytes []byte `json:"snapshot_bytes"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type loadSnapshotResponse struct {
	Success       bool   `json:"success"`
	SnapshotBytes []byte `json:"snapshot_bytes"`
}

type checkVersionRequest struct {
	Version string `json:"version"`
}

type checkVersionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type pingResponse struct {
	Alive bool `json:"alive"`
}

// NewRouter wires the node's RPC surface onto a gorilla/mux router.
func NewRouter(n Node, log zerolog.Logger) *mux.Router {
	h := &handlers{node: n, log: log.With().Str("component", "controlapi").Logger()}

	r := mux.NewRouter()
	r.HandleFunc("/rpc/get-leader", h.getLeaderInfo).Methods(http.MethodGet)
	r.HandleFunc("/rpc/save-snapshot", h.saveSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/rpc/replicate", h.replicateSaveSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/rpc/load-snapshot", h.loadSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/rpc/check-version", h.checkVersion).Methods(http.MethodPost)
	r.HandleFunc("/rpc/ping", h.ping).Methods(http.MethodGet)
	return r
}

type handlers struct {
	node Node
	log  zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// getLeaderInfo answers regardless of leadership.
func (h *handlers) getLeaderInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, leaderInfoResponse{Info: h.node.GetLeaderAddr()})
}

// saveSnapshot writes locally then fans out to backups. It always reports
// success to the caller once the local write lands; stale backups are
// accepted in exchange for availability.
func (h *handlers) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req saveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, successResponse{Success: false})
		return
	}
	data := req.SnapshotBytes
	if err := h.node.SaveAndReplicate(data); err != nil {
		h.log.Error().Err(err).Msg("snapshot save failed")
		writeJSON(w, http.StatusInternalServerError, successResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// replicateSaveSnapshot is the backup-side half of replication: write
// locally, ack.
func (h *handlers) replicateSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req saveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, successResponse{Success: false})
		return
	}
	if err := h.node.SaveLocal(req.SnapshotBytes); err != nil {
		h.log.Error().Err(err).Msg("replicated snapshot save failed")
		writeJSON(w, http.StatusInternalServerError, successResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *handlers) loadSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.node.LoadLocal()
	if err != nil {
		writeJSON(w, http.StatusOK, loadSnapshotResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, loadSnapshotResponse{Success: true, SnapshotBytes: data})
}

func (h *handlers) checkVersion(w http.ResponseWriter, r *http.Request) {
	var req checkVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkVersionResponse{Success: false, Message: "malformed request"})
		return
	}
	if req.Version == config.Version {
		writeJSON(w, http.StatusOK, checkVersionResponse{Success: true, Message: "ok"})
		return
	}
	writeJSON(w, http.StatusOK, checkVersionResponse{
		Success: false,
		Message: "version mismatch: node runs " + config.Version + ", caller sent " + req.Version,
	})
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Alive: true})
}
