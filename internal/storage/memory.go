package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu       sync.RWMutex
	rainfall map[[3]int]domain.DailyRainfallRecord
	system   *domain.System
	demand   *domain.DemandSchedule
	optimum  *domain.EstimateResult
	reports  map[string]domain.SizingReport
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		rainfall: make(map[[3]int]domain.DailyRainfallRecord),
		reports:  make(map[string]domain.SizingReport),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(context.Context) error { return nil }

func (m *MemoryStorage) SaveRainfall(_ context.Context, records []domain.DailyRainfallRecord) (int, error) {
	if err := validateAll(records); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := 0
	for _, r := range records {
		k := [3]int{r.Year, r.Month, r.Day}
		if _, ok := m.rainfall[k]; ok {
			continue
		}
		m.rainfall[k] = r
		saved++
	}
	return saved, nil
}

func (m *MemoryStorage) ListRainfall(context.Context) ([]domain.DailyRainfallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DailyRainfallRecord, 0, len(m.rainfall))
	for _, r := range m.rainfall {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date().Before(out[j].Date())
	})
	return out, nil
}

func (m *MemoryStorage) GetSystem(context.Context) (*domain.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.system == nil {
		return nil, nil
	}
	cp := *m.system
	return &cp, nil
}

func (m *MemoryStorage) SaveSystem(_ context.Context, s domain.System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.system = &s
	return nil
}

func (m *MemoryStorage) GetDemand(context.Context) (*domain.DemandSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.demand == nil {
		return nil, nil
	}
	cp := *m.demand
	return &cp, nil
}

func (m *MemoryStorage) SaveDemand(_ context.Context, d domain.DemandSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demand = &d
	return nil
}

func (m *MemoryStorage) GetOptimum(context.Context) (*domain.EstimateResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.optimum == nil {
		return nil, nil
	}
	cp := *m.optimum
	return &cp, nil
}

func (m *MemoryStorage) SaveOptimum(_ context.Context, r domain.EstimateResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimum = &r
	return nil
}

func (m *MemoryStorage) ClearOptimum(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimum = nil
	return nil
}

func (m *MemoryStorage) GetReport(_ context.Context, id string) (*domain.SizingReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStorage) SaveReport(_ context.Context, r domain.SizingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}
