// Package session hands out one reservation ledger per register. A ledger
// lives for the life of the process so parked-claim accounting stays
// consistent across requests; the first acquisition builds and initializes
// it.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/internal/sales/journal"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/metrics"
)

// Factory builds a ledger bound to one register, wiring the register-scoped
// cart store underneath it.
type Factory func(registerID string) (*ledger.Ledger, error)

// Manager maps register ids to live ledgers.
type Manager struct {
	mu      sync.RWMutex
	ledgers map[string]*ledger.Ledger

	factory Factory
	journal *journal.Service
	logg    *logger.Logger
	metrics *metrics.RegisterMetrics
}

// Params wires the manager. Journal and Metrics are optional.
type Params struct {
	Factory Factory
	Journal *journal.Service
	Logger  *logger.Logger
	Metrics *metrics.RegisterMetrics
}

// NewManager builds a session manager.
func NewManager(params Params) (*Manager, error) {
	if params.Factory == nil {
		return nil, errors.New("ledger factory is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Manager{
		ledgers: make(map[string]*ledger.Ledger),
		factory: params.Factory,
		journal: params.Journal,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Acquire returns the register's ledger, building and refreshing it on
// first use. A ledger that fails its initial refresh is not cached, so the
// next request starts over instead of serving an empty stock index forever.
func (m *Manager) Acquire(ctx context.Context, registerID string) (*ledger.Ledger, error) {
	registerID = strings.TrimSpace(registerID)
	if registerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "register id is required")
	}

	m.mu.RLock()
	existing, ok := m.ledgers[registerID]
	m.mu.RUnlock()
	if ok {
		return existing, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.ledgers[registerID]; ok {
		return existing, nil
	}

	built, err := m.factory(registerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build register session")
	}
	if err := built.Refresh(ctx); err != nil {
		return nil, err
	}

	m.ledgers[registerID] = built
	m.metrics.SetSessions(len(m.ledgers))
	m.journal.RegisterOpened(ctx, registerID)

	logCtx := m.logg.WithField(ctx, "register_id", registerID)
	m.logg.Info(logCtx, "register session opened")

	return built, nil
}

// Evict drops a register's session. The next acquire rebuilds it from the
// cart store and catalog.
func (m *Manager) Evict(registerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ledgers[registerID]; !ok {
		return
	}
	delete(m.ledgers, registerID)
	m.metrics.SetSessions(len(m.ledgers))
}

// Count reports how many register sessions are live.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ledgers)
}
