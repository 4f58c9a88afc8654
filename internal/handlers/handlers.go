// Package handlers wires the HTTP surface: ingestion, the two streaming
// transports, and the diagnostics endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/broadcast"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/client"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/fixture"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/ingest"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/registry"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/sse"
	"github.com/XavierBriggs/fortuna/services/odds-composer/pkg/models"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Handler manages HTTP endpoints.
type Handler struct {
	ingest   *ingest.Ingestor
	registry *registry.Registry
	bc       *broadcast.Broadcaster
	metrics  *metrics.Metrics
	ctx      context.Context
	started  time.Time
}

// NewHandler creates a handler. ctx is the server lifecycle context; streams
// and pumps shut down when it is cancelled.
func NewHandler(ctx context.Context, ing *ingest.Ingestor, reg *registry.Registry, bc *broadcast.Broadcaster, m *metrics.Metrics) *Handler {
	return &Handler{
		ingest:   ing,
		registry: reg,
		bc:       bc,
		metrics:  m,
		ctx:      ctx,
		started:  time.Now(),
	}
}

// Router builds the chi router for the service.
func (h *Handler) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// No request timeout middleware: /api/events and /ws hold their
	// connections open for the client's lifetime.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Cache-Control", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/events", h.HandleEvents)
	r.Post("/api/data", h.HandleData)
	r.Get("/api/status", h.HandleStatus)
	r.Post("/api/push", h.HandlePush)
	r.Post("/api/clear", h.HandleClear)
	r.Get("/api/hello", h.HandleHello)
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	return r
}

// HandleEvents opens a Server-Sent Events stream, registers it for
// broadcasts, and holds the request open until the client disconnects.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := sse.NewStream(uuid.New().String(), w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	welcome, _ := json.Marshal(models.Envelope{
		Type:      models.TypeConnection,
		Message:   "SSE connected",
		Timestamp: time.Now().UTC(),
	})
	if err := stream.Send(welcome); err != nil {
		return
	}

	h.registry.Add(stream)
	h.metrics.ActiveConnections.WithLabelValues(string(registry.KindSSE)).Inc()
	fmt.Printf("✓ SSE client connected: %s (total: %d)\n", stream.ID(), h.registry.Count())

	go stream.Heartbeat(h.ctx, sse.HeartbeatInterval)

	select {
	case <-r.Context().Done():
	case <-h.ctx.Done():
	}

	h.registry.Remove(stream.ID())
	stream.Close()
	h.metrics.ActiveConnections.WithLabelValues(string(registry.KindSSE)).Dec()
	fmt.Printf("SSE client disconnected: %s (total: %d)\n", stream.ID(), h.registry.Count())
}

// HandleData ingests a fixture payload: a full snapshot rebuilds the
// document, a partial update (distinguished by a player_id field) merges into
// it. Either way the result is broadcast to every connected client.
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	var payload ingest.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON body"})
		return
	}

	var (
		res ingest.Result
		err error
	)
	if payload.IsUpdate() {
		res, err = h.ingest.Update(&payload)
		if errors.Is(err, fixture.ErrNoSnapshot) {
			h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "no fixture snapshot to update"})
			return
		}
	} else {
		res, err = h.ingest.Snapshot(&payload)
	}
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process data"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Data received successfully!",
		"new_lines": res.NewLines,
		"timestamp": time.Now().UTC(),
	})
}

// HandleStatus returns open-connection counts and uptime.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.StatusResponse{
		Status:               "OK",
		Timestamp:            time.Now().UTC(),
		UptimeSeconds:        time.Since(h.started).Seconds(),
		WebSocketConnections: h.registry.CountKind(registry.KindWebSocket),
		SSEConnections:       h.registry.CountKind(registry.KindSSE),
	})
}

// HandlePush broadcasts an arbitrary out-of-band message to all clients.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message any    `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if payload.Message == nil || payload.Message == "" {
		h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Message is required"})
		return
	}
	if payload.Type == "" {
		payload.Type = models.TypeNotification
	}

	h.metrics.IngestTotal.WithLabelValues("push").Inc()
	h.bc.Broadcast(models.PushMessage{
		Type:      payload.Type,
		Message:   payload.Message,
		Timestamp: time.Now().UTC(),
	})

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Data pushed to all connected clients",
		"timestamp": time.Now().UTC(),
	})
}

// HandleClear drops the stored fixture document and tells clients to flush.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.ingest.Clear()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Fixture data cleared",
		"timestamp": time.Now().UTC(),
	})
}

// HandleHello is a trivial liveness probe for manual poking.
func (h *Handler) HandleHello(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Hello from the backend!"})
}

// HandleWebSocket upgrades the connection and registers the client for
// broadcasts. Inbound frames are echoed to all WebSocket clients.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("⚠️  WebSocket upgrade error: %v\n", err)
		return
	}

	c := client.New(uuid.New().String(), conn, h.echoInbound, func(c *client.Client) {
		h.registry.Remove(c.ID())
		c.Close()
		h.metrics.ActiveConnections.WithLabelValues(string(registry.KindWebSocket)).Dec()
		fmt.Printf("WebSocket client disconnected: %s (total: %d)\n", c.ID(), h.registry.Count())
	})
	h.registry.Add(c)
	h.metrics.ActiveConnections.WithLabelValues(string(registry.KindWebSocket)).Inc()

	welcome, _ := json.Marshal(models.Envelope{
		Type:      models.TypeConnection,
		Message:   "WebSocket connection established",
		Timestamp: time.Now().UTC(),
	})
	c.Send(welcome)

	go c.WritePump(h.ctx)
	go c.ReadPump(h.ctx)

	fmt.Printf("✓ WebSocket connection established: %s (total: %d)\n", c.ID(), h.registry.Count())
}

// HandleHealth returns service health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "odds-composer",
		"active_clients": h.registry.Count(),
	})
}

// echoInbound re-broadcasts a client frame to all WebSocket clients.
func (h *Handler) echoInbound(msg map[string]any) {
	h.bc.BroadcastKind(registry.KindWebSocket, models.BroadcastFrame{
		Type:      models.TypeBroadcast,
		Data:      msg,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
