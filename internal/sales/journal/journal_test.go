package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tilldesk/register-backend/pkg/db/models"
	"github.com/tilldesk/register-backend/pkg/enums"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	err     error
	emitted []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.emitted = append(s.emitted, event)
	return s.err
}

func (s *stubEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.emitted = append(s.emitted, event)
	return s.err
}

func newJournalTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newIntegrationService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "journal-test"})
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	svc, err := NewService(gormRunner{db: conn}, emitter, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSaleCompletedJournalsOutboxRow(t *testing.T) {
	conn := newJournalTestDB(t)
	svc := newIntegrationService(t, conn)

	receiptID := uuid.New()
	sale := payloads.SaleCompletedEvent{
		ReceiptID:    receiptID,
		RegisterID:   "till-9",
		CustomerName: "Walk-in",
		GrandTotal:   decimal.RequireFromString("42.10"),
		Items: []payloads.SaleLineItem{
			{ProductID: "prod-1", UnitPrice: decimal.RequireFromString("21.05"), Quantity: 2},
		},
		CompletedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
	svc.SaleCompleted(context.Background(), sale)

	var rows []models.OutboxEvent
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(rows))
	}
	row := rows[0]
	if row.EventType != enums.EventSaleCompleted {
		t.Fatalf("unexpected event type %v", row.EventType)
	}
	if row.AggregateType != enums.AggregateSale {
		t.Fatalf("unexpected aggregate type %v", row.AggregateType)
	}
	if row.AggregateID != receiptID {
		t.Fatalf("unexpected aggregate id %s", row.AggregateID)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Actor == nil || envelope.Actor.RegisterID != "till-9" {
		t.Fatalf("expected actor register id, got %+v", envelope.Actor)
	}
	var stored payloads.SaleCompletedEvent
	if err := json.Unmarshal(envelope.Data, &stored); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if !stored.GrandTotal.Equal(sale.GrandTotal) {
		t.Fatalf("grand total mismatch: %s", stored.GrandTotal)
	}
	if len(stored.Items) != 1 || stored.Items[0].Quantity != 2 {
		t.Fatalf("items mismatch: %+v", stored.Items)
	}
}

func TestSaleCompletedSwallowsEmitterFailure(t *testing.T) {
	emitter := &stubEmitter{err: errors.New("boom")}
	logg := logger.New(logger.Options{ServiceName: "journal-test"})
	svc, err := NewService(stubRunner{}, emitter, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.SaleCompleted(context.Background(), payloads.SaleCompletedEvent{
		ReceiptID:  uuid.New(),
		RegisterID: "till-1",
	})
	if len(emitter.emitted) != 1 {
		t.Fatalf("expected emit attempt, got %d", len(emitter.emitted))
	}
}

func TestSaleCompletedRequiresReceiptID(t *testing.T) {
	emitter := &stubEmitter{}
	logg := logger.New(logger.Options{ServiceName: "journal-test"})
	svc, err := NewService(stubRunner{}, emitter, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.SaleCompleted(context.Background(), payloads.SaleCompletedEvent{RegisterID: "till-1"})
	if len(emitter.emitted) != 0 {
		t.Fatalf("expected no emit without receipt id, got %d", len(emitter.emitted))
	}
}

func TestRegisterOpenedDeduplicates(t *testing.T) {
	conn := newJournalTestDB(t)
	svc := newIntegrationService(t, conn)

	svc.RegisterOpened(context.Background(), "till-1")
	svc.RegisterOpened(context.Background(), "till-1")

	var rows []models.OutboxEvent
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(rows))
	}
	if rows[0].EventType != enums.EventRegisterOpened {
		t.Fatalf("unexpected event type %v", rows[0].EventType)
	}
	if rows[0].AggregateID != RegisterAggregateID("till-1") {
		t.Fatalf("unexpected aggregate id %s", rows[0].AggregateID)
	}
}

func TestRegisterOpenedIgnoresBlankID(t *testing.T) {
	emitter := &stubEmitter{}
	logg := logger.New(logger.Options{ServiceName: "journal-test"})
	svc, err := NewService(stubRunner{}, emitter, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.RegisterOpened(context.Background(), "   ")
	if len(emitter.emitted) != 0 {
		t.Fatalf("expected no emit for blank register, got %d", len(emitter.emitted))
	}
}

func TestNilJournalIsNoOp(t *testing.T) {
	var svc *Service
	svc.SaleCompleted(context.Background(), payloads.SaleCompletedEvent{ReceiptID: uuid.New()})
	svc.RegisterOpened(context.Background(), "till-1")
}

func TestRegisterAggregateIDStable(t *testing.T) {
	a := RegisterAggregateID("till-1")
	b := RegisterAggregateID("till-1")
	c := RegisterAggregateID("till-2")
	if a != b {
		t.Fatalf("expected stable id, got %s and %s", a, b)
	}
	if a == c {
		t.Fatal("expected distinct ids per register")
	}
}
