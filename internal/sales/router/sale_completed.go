package router

import (
	"context"
	"fmt"

	"github.com/tilldesk/register-backend/internal/sales/types"
	saleswriter "github.com/tilldesk/register-backend/internal/sales/writer"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
)

type saleCompletedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSaleCompletedHandler(writer Writer, logg *logger.Logger) Handler {
	return &saleCompletedHandler{writer: writer, logg: logg}
}

func (h *saleCompletedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for sale_completed")
	}

	fields := map[string]any{
		"event_type":  envelope.EventType,
		"receipt_id":  event.ReceiptID,
		"register_id": event.RegisterID,
		"grand_total": event.GrandTotal.String(),
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildSaleCompletedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build sales fact row", err)
		return err
	}

	if err := h.writer.InsertSalesFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sales fact row", err)
		return err
	}

	h.logg.Info(logCtx, "sale_completed handler inserted sales fact row")
	return nil
}

func buildSaleCompletedRow(envelope types.Envelope, event *payloads.SaleCompletedEvent) (types.SalesFactRow, error) {
	itemsJSON, err := saleswriter.EncodeJSON(event.Items)
	if err != nil {
		return types.SalesFactRow{}, fmt.Errorf("encode items json: %w", err)
	}
	payloadJSON, err := saleswriter.EncodeJSON(event)
	if err != nil {
		return types.SalesFactRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	units := int64(0)
	for _, item := range event.Items {
		units += int64(item.Quantity)
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = event.CompletedAt
	}

	return types.SalesFactRow{
		EventID:         envelope.EventID,
		EventType:       string(envelope.EventType),
		OccurredAt:      occurredAt,
		ReceiptID:       stringPtr(event.ReceiptID.String()),
		RegisterID:      stringPtr(event.RegisterID),
		CustomerName:    stringPtr(event.CustomerName),
		GrandTotalCents: int64Ptr(event.GrandTotal.Shift(2).IntPart()),
		ItemCount:       int64Ptr(int64(len(event.Items))),
		UnitsSold:       int64Ptr(units),
		Items:           itemsJSON,
		Payload:         payloadJSON,
	}, nil
}
