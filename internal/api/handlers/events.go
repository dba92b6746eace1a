package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dvloznov/expense-inbox/internal/api/middleware"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/logger"
	"github.com/dvloznov/expense-inbox/internal/pipeline"
)

// Storage event types that mean "a new object was written".
const (
	CloudEventFinalized = "google.cloud.storage.object.v1.finalized"
	PubSubFinalize      = "OBJECT_FINALIZE"
)

const maxEventBytes = 1 << 20

// ErrIgnoredEvent is returned by DecodeEvent for events other than object creation.
var ErrIgnoredEvent = errors.New("event is not an object creation")

// Processor handles one stored email.
// *pipeline.Orchestrator satisfies it.
type Processor interface {
	Handle(ctx context.Context, ref gcs.ObjectRef) error
}

// storageObjectData is the subset of the Cloud Storage object resource the events carry.
type storageObjectData struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// structuredEvent is a CloudEvent in structured content mode.
type structuredEvent struct {
	SpecVersion string            `json:"specversion"`
	Type        string            `json:"type"`
	Source      string            `json:"source"`
	ID          string            `json:"id"`
	Data        storageObjectData `json:"data"`
}

// pushEnvelope is a Pub/Sub push delivery of a Cloud Storage notification.
type pushEnvelope struct {
	Message struct {
		Attributes map[string]string `json:"attributes"`
		Data       []byte            `json:"data"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodeEvent turns an incoming trigger request into an object reference.
// Eventarc binary mode, Eventarc structured mode and Pub/Sub push are accepted.
func DecodeEvent(r *http.Request) (gcs.ObjectRef, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		return gcs.ObjectRef{}, fmt.Errorf("read event body: %w", err)
	}

	if ceType := r.Header.Get("Ce-Type"); ceType != "" {
		if ceType != CloudEventFinalized {
			return gcs.ObjectRef{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, ceType)
		}
		var data storageObjectData
		if err := json.Unmarshal(body, &data); err != nil {
			return gcs.ObjectRef{}, fmt.Errorf("decode cloudevent data: %w", err)
		}
		return objectRef(data.Bucket, data.Name)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/cloudevents+json" {
		var ev structuredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return gcs.ObjectRef{}, fmt.Errorf("decode cloudevent: %w", err)
		}
		if ev.Type != CloudEventFinalized {
			return gcs.ObjectRef{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, ev.Type)
		}
		return objectRef(ev.Data.Bucket, ev.Data.Name)
	}

	var push pushEnvelope
	if err := json.Unmarshal(body, &push); err != nil {
		return gcs.ObjectRef{}, fmt.Errorf("decode push envelope: %w", err)
	}
	attrs := push.Message.Attributes
	if attrs == nil {
		return gcs.ObjectRef{}, errors.New("decode push envelope: no message attributes")
	}
	if attrs["eventType"] != PubSubFinalize {
		return gcs.ObjectRef{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, attrs["eventType"])
	}
	return objectRef(attrs["bucketId"], attrs["objectId"])
}

func objectRef(bucket, name string) (gcs.ObjectRef, error) {
	if bucket == "" || name == "" {
		return gcs.ObjectRef{}, fmt.Errorf("event has no bucket or object name (bucket=%q, name=%q)", bucket, name)
	}
	return gcs.ObjectRef{Bucket: bucket, Key: name}, nil
}

// EventsHandler receives storage events and runs the email pipeline.
type EventsHandler struct {
	processor Processor
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(p Processor) *EventsHandler {
	return &EventsHandler{processor: p}
}

// HandleEvent handles POST / and POST /events.
//
// The status code tells the trigger whether to redeliver: 500 only for
// transient failures, 200 for everything that was handled or cannot succeed.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ref, err := DecodeEvent(r)
	if errors.Is(err, ErrIgnoredEvent) {
		log.Debug().Err(err).Msg("Ignoring event")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to decode event")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid event")
		return
	}

	err = h.processor.Handle(ctx, ref)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "processed",
			"object": ref.URI(),
		})
	case pipeline.IsTransient(err):
		log.Error().Err(err).Str("object", ref.URI()).Msg("Transient failure, requesting redelivery")
		middleware.WriteError(w, http.StatusInternalServerError, "Transient failure")
	default:
		log.Warn().Err(err).Str("object", ref.URI()).Msg("Permanent failure, acknowledging event")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "failed",
			"object": ref.URI(),
			"error":  err.Error(),
		})
	}
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Routes registers the receiver endpoints.
func Routes(events *EventsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", events.HandleEvent)
	mux.HandleFunc("POST /events", events.HandleEvent)
	mux.HandleFunc("GET /health", Health)
	return mux
}
