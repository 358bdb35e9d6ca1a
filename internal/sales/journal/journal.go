// Package journal records till activity on the transactional outbox so HQ
// analytics eventually sees it. Journaling is best effort: failures are
// logged and never surfaced to the cashier flow.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/register-backend/pkg/enums"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service writes sales journal entries. A nil *Service is a valid no-op
// journal for deployments without eventing configured.
type Service struct {
	db     txRunner
	events emitter
	logg   *logger.Logger
}

// NewService creates a journal backed by the outbox emitter.
func NewService(db txRunner, events emitter, logg *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("db client is required")
	}
	if events == nil {
		return nil, errors.New("outbox emitter is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{db: db, events: events, logg: logg}, nil
}

// SaleCompleted journals a finished checkout.
func (s *Service) SaleCompleted(ctx context.Context, sale payloads.SaleCompletedEvent) {
	if s == nil {
		return
	}
	fields := map[string]any{
		"receipt_id":  sale.ReceiptID.String(),
		"register_id": sale.RegisterID,
	}
	logCtx := s.logg.WithFields(ctx, fields)

	if sale.ReceiptID == uuid.Nil {
		s.logg.Warn(logCtx, "sale journal skipped, missing receipt id")
		return
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ReceiptID,
		Data:          sale,
		OccurredAt:    sale.CompletedAt,
	}
	if sale.RegisterID != "" {
		event.Actor = &outbox.ActorRef{RegisterID: sale.RegisterID}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.Emit(ctx, tx, event)
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "sale journal failed")
	}
}

// RegisterOpened journals the first activity on a register. Repeat calls for
// the same register are deduplicated through the outbox unique index.
func (s *Service) RegisterOpened(ctx context.Context, registerID string) {
	if s == nil {
		return
	}
	registerID = strings.TrimSpace(registerID)
	if registerID == "" {
		return
	}
	fields := map[string]any{"register_id": registerID}
	logCtx := s.logg.WithFields(ctx, fields)

	event := outbox.DomainEvent{
		EventType:     enums.EventRegisterOpened,
		AggregateType: enums.AggregateRegister,
		AggregateID:   RegisterAggregateID(registerID),
		Actor:         &outbox.ActorRef{RegisterID: registerID},
		Data: payloads.RegisterOpenedEvent{
			RegisterID: registerID,
			OpenedAt:   time.Now().UTC(),
		},
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "register journal failed")
	}
}

// RegisterAggregateID derives a stable aggregate id from a register id so
// register events dedupe across restarts.
func RegisterAggregateID(registerID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(registerID))
}
