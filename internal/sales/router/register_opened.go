package router

import (
	"context"
	"fmt"

	"github.com/tilldesk/register-backend/internal/sales/types"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
)

// register_opened events do not produce fact rows; they mark the register
// as live in the HQ logs.
type registerOpenedHandler struct {
	logg *logger.Logger
}

func newRegisterOpenedHandler(logg *logger.Logger) Handler {
	return &registerOpenedHandler{logg: logg}
}

func (h *registerOpenedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.RegisterOpenedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for register_opened")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":  envelope.EventType,
		"register_id": event.RegisterID,
		"opened_at":   event.OpenedAt,
	})
	h.logg.Info(logCtx, "register opened")
	return nil
}
