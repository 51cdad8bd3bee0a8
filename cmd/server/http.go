package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/ontologychat"
)

// newRouter wires the three demo endpoints §6 names: the primary chat
// request/response, its streaming variant, and a health check. CORS/
// logging/recovery middleware mirrors the chi+cors setup the pack's
// gateway tests exercise.
func newRouter(engine *ontologychat.Engine, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &chatHandler{engine: engine, log: logger}

	r.Get("/healthz", h.health)
	r.Post("/v1/chat", h.chat)
	r.Post("/v1/chat/stream", h.chatStream)
	return r
}

type chatHandler struct {
	engine *ontologychat.Engine
	log    *zap.Logger
}

type chatRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	ForceDeep bool   `json:"force_deep,omitempty"`
}

func (h *chatHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, coreerr.New(coreerr.KindValidation, "http", "malformed JSON body", err))
		return
	}

	resp, err := h.engine.Chat(r.Context(), ontologychat.Request{
		Text:      body.Query,
		UserID:    body.UserID,
		SessionID: body.SessionID,
		ForceDeep: body.ForceDeep,
	})
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatStream is a pragmatic SSE variant: it runs Chat synchronously and
// emits the closed event set §6 names (progress, step, data, final,
// error, done) as a short, fixed sequence around the one real call,
// rather than true per-node live events. Wiring a live event stream would
// mean giving the Deep Workflow's graph.Engine a per-request emitter
// instead of the one fixed at Init — out of scope for this demo binding
// (see DESIGN.md).
func (h *chatHandler) chatStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, coreerr.New(coreerr.KindValidation, "http", "malformed JSON body", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, flusher, "progress", map[string]interface{}{"fraction": 0.0, "step": "received"})
	writeSSE(w, flusher, "step", map[string]interface{}{"name": "route"})

	resp, err := h.engine.Chat(r.Context(), ontologychat.Request{
		Text:      body.Query,
		UserID:    body.UserID,
		SessionID: body.SessionID,
		ForceDeep: body.ForceDeep,
	})
	if err != nil {
		writeSSE(w, flusher, "error", map[string]interface{}{"message": err.Error(), "kind": string(coreerr.KindOf(err))})
		writeSSE(w, flusher, "done", map[string]interface{}{})
		return
	}

	writeSSE(w, flusher, "progress", map[string]interface{}{"fraction": 1.0, "step": "rendered"})
	writeSSE(w, flusher, "data", resp)
	writeSSE(w, flusher, "final", map[string]interface{}{"type": resp.Type})
	writeSSE(w, flusher, "done", map[string]interface{}{})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForErr maps a coreerr.Kind to the HTTP status §7's error kinds
// would naturally carry over an HTTP transport.
func statusForErr(err error) int {
	switch coreerr.KindOf(err) {
	case coreerr.KindValidation:
		return http.StatusBadRequest
	case coreerr.KindTimeout:
		return http.StatusGatewayTimeout
	case coreerr.KindCircuitOpen, coreerr.KindOverload:
		return http.StatusServiceUnavailable
	case coreerr.KindUnavailable, coreerr.KindUpstream:
		return http.StatusBadGateway
	case coreerr.KindCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
