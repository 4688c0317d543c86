package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/application/filter"
	"github.com/Rakhazzan/SINTESIS/internal/application/livesync"
	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
)

// DefaultHeartbeat is the interval between heartbeat events
const DefaultHeartbeat = 30 * time.Second

// SSEHandler streams mounted views as Server-Sent Events. One connection
// mounts one view; the view is torn down when the client disconnects.
type SSEHandler struct {
	views     *services.Views
	sessions  *services.Sessions
	messages  *services.MessageService
	metrics   *observability.Metrics
	heartbeat time.Duration
	now       func() time.Time
	clients   atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(
	views *services.Views,
	sessions *services.Sessions,
	messages *services.MessageService,
	metrics *observability.Metrics,
	heartbeat time.Duration,
	now func() time.Time,
) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if now == nil {
		now = time.Now
	}
	return &SSEHandler{
		views:     views,
		sessions:  sessions,
		messages:  messages,
		metrics:   metrics,
		heartbeat: heartbeat,
		now:       now,
	}
}

// snapshot is the payload of a snapshot event
type snapshot struct {
	View      string      `json:"view"`
	Data      interface{} `json:"data"`
	IsLoading bool        `json:"is_loading"`
	Error     string      `json:"error,omitempty"`
	Live      bool        `json:"live"`
	Version   uint64      `json:"version"`
}

func snapshotOf[T any](view string, state livesync.State[T], data interface{}) snapshot {
	s := snapshot{
		View:      view,
		Data:      data,
		IsLoading: state.IsLoading,
		Live:      state.Live,
		Version:   state.Version,
	}
	if state.Err != nil {
		s.Error = state.Err.Error()
	}
	return s
}

// StreamPatients handles GET /api/stream/patients?search=
func (h *SSEHandler) StreamPatients(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	view := h.views.Patients()

	h.stream(w, r, view, map[string]interface{}{"search": search}, func() snapshot {
		state := view.Snapshot()
		return snapshotOf(view.Name(), state, filter.Patients(state.Data, search))
	})
}

// StreamAppointments handles GET /api/stream/appointments?filter=&search=&patient=
func (h *SSEHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode, err := filter.ParseMode(query.Get("filter"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	search, patientID := query.Get("search"), query.Get("patient")
	view := h.views.Appointments(patientID)

	connected := map[string]interface{}{"filter": mode, "search": search, "patient": patientID}
	h.stream(w, r, view, connected, func() snapshot {
		state := view.Snapshot()
		return snapshotOf(view.Name(), state, filter.Appointments(state.Data, mode, search, h.now()))
	})
}

// StreamConversation handles GET /api/stream/messages/{peerID}
func (h *SSEHandler) StreamConversation(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	peerID := r.PathValue("peerID")
	if peerID == "" || peerID == session.UserID {
		respondWithError(w, http.StatusBadRequest, "a different contact is required")
		return
	}
	self, peer, err := h.messages.Participants(r.Context(), session.UserID, peerID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	conv := h.views.Conversation(session.UserID, peerID)
	unmount := h.sessions.Mount(conv)
	defer unmount()

	type conversationData struct {
		Messages    interface{} `json:"messages"`
		UnreadCount int         `json:"unread_count"`
	}
	h.stream(w, r, conv, map[string]interface{}{"self": self, "peer": peer}, func() snapshot {
		state := conv.Snapshot()
		return snapshotOf(conv.Name(), state, conversationData{
			Messages:    state.Data,
			UnreadCount: len(filter.Unread(state.Data, session.UserID)),
		})
	})
}

// StreamUnread handles GET /api/stream/unread
func (h *SSEHandler) StreamUnread(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	view := h.views.Unread(session.UserID)

	h.stream(w, r, view, nil, func() snapshot {
		state := view.Snapshot()
		return snapshotOf(view.Name(), state, state.Data)
	})
}

// StreamDashboard handles GET /api/stream/dashboard
func (h *SSEHandler) StreamDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	view := h.views.Dashboard(session.UserID)

	h.stream(w, r, view, nil, func() snapshot {
		state := view.Snapshot()
		return snapshotOf(view.Name(), state, state.Data)
	})
}

// stream mounts view for the lifetime of the request
func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, view services.View, connected map[string]interface{}, render func() snapshot) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := observability.LoggerFromContext(ctx)

	if err := view.Start(ctx); err != nil {
		// The snapshot carries the error; the view stays mounted and
		// recovers on the next change.
		logger.Warn().Err(err).Str("view", view.Name()).Msg("initial fetch failed")
	}
	defer view.Stop()

	h.clients.Add(1)
	defer h.clients.Add(-1)
	observability.RecordStream(ctx, h.metrics, view.Name(), 1)
	defer observability.RecordStream(context.WithoutCancel(ctx), h.metrics, view.Name(), -1)

	if connected == nil {
		connected = map[string]interface{}{}
	}
	connected["view"] = view.Name()
	connected["timestamp"] = h.now()
	h.sendEvent(w, "connected", connected)
	h.sendEvent(w, "snapshot", render())
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("view", view.Name()).Msg("client disconnected from stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": h.now(),
			})
			flusher.Flush()
		case <-view.Updates():
			h.sendEvent(w, "snapshot", render())
			flusher.Flush()
		}
	}
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of open streams
func (h *SSEHandler) GetClientCount() int {
	return int(h.clients.Load())
}
