package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tilldesk/register-backend/internal/sales/types"
	"github.com/tilldesk/register-backend/pkg/enums"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
	"github.com/tilldesk/register-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported sales event type")

// Writer delivers BigQuery rows produced by sales handlers.
type Writer interface {
	InsertSalesFact(ctx context.Context, row types.SalesFactRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches sales envelopes to the configured handler per event type.
// Payloads are decoded through a versioned decoder registry so schema bumps
// can coexist during rollouts.
type Router struct {
	decoders *registry.DecoderRegistry
	handlers map[enums.OutboxEventType]Handler
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventSaleCompleted, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.SaleCompletedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	decoders.Register(enums.EventRegisterOpened, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.RegisterOpenedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventSaleCompleted:  newSaleCompletedHandler(writer, logg),
		enums.EventRegisterOpened: newRegisterOpenedHandler(logg),
	}

	for event, custom := range overrides {
		if custom == nil {
			continue
		}
		if _, ok := handlers[event]; !ok {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		decoders: decoders,
		handlers: handlers,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return handler.Handle(ctx, envelope, payload)
}
