// Package tanka is the caller side of the simulation core. It assembles
// simulation inputs from storage, guards the preconditions the simulator
// expects, drives sweeps with progress and cancellation, and keeps track of
// whether the last reliability estimate still reflects the stored inputs.
package tanka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotConfigured is returned when no site system has been stored.
	ErrNotConfigured = errors.New("site system not configured")

	// ErrNotFound is returned when a requested report does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRecommendation is returned when saving the optimum of a report
	// whose advice recommends no tank.
	ErrNoRecommendation = errors.New("report has no recommended tank")
)

// Store is the persistence the service needs.
type Store interface {
	SaveRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error)
	ListRainfall(ctx context.Context) ([]domain.DailyRainfallRecord, error)
	GetSystem(ctx context.Context) (*domain.System, error)
	SaveSystem(ctx context.Context, s domain.System) error
	GetDemand(ctx context.Context) (*domain.DemandSchedule, error)
	SaveDemand(ctx context.Context, d domain.DemandSchedule) error
	GetOptimum(ctx context.Context) (*domain.EstimateResult, error)
	SaveOptimum(ctx context.Context, r domain.EstimateResult) error
	ClearOptimum(ctx context.Context) error
	GetReport(ctx context.Context, id string) (*domain.SizingReport, error)
	SaveReport(ctx context.Context, r domain.SizingReport) error
}

// ReportPublisher receives every finished sizing report.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.SizingReport) error
}

// ProgressFunc is called after each sweep candidate with completed/total counts.
type ProgressFunc func(completed, total int)

// Sweep kinds used as metric labels.
const (
	kindPerformance = "performance"
	kindBudget      = "budget"
)

// Status describes the freshness of the stored estimate.
type Status struct {
	Stale        bool                   `json:"stale"`
	LastEstimate *domain.EstimateResult `json:"last_estimate,omitempty"`
	Optimum      *domain.EstimateResult `json:"optimum,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends sizing reports to p after they are stored.
func WithPublisher(p ReportPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source for report timestamps and outlook windows.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator overrides how sizing report IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// Service orchestrates estimates, sweeps and sizing reports.
type Service struct {
	store     Store
	publisher ReportPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	clock     clockwork.Clock
	newID     func() string

	mu           sync.Mutex
	stale        bool
	lastEstimate *domain.EstimateResult
}

// New creates a Service. The estimate starts stale.
func New(store Store, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		metrics: metrics,
		logger:  logger,
		clock:   domain.Clock(),
		newID:   uuid.NewString,
		stale:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status reports whether the last estimate is stale, and the saved optimum.
func (s *Service) Status(ctx context.Context) (Status, error) {
	optimum, err := s.store.GetOptimum(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load optimum: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Stale: s.stale, Optimum: optimum}
	if s.lastEstimate != nil {
		last := *s.lastEstimate
		st.LastEstimate = &last
	}
	return st, nil
}

// Stale reports whether the stored inputs changed since the last estimate.
func (s *Service) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

func (s *Service) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// RainfallChanged marks the estimate stale when new records were stored
// outside the service. Its signature matches pipeline.Pipeline.OnLoad.
func (s *Service) RainfallChanged(_ context.Context, records int) {
	if records <= 0 {
		return
	}
	s.logger.Debug("rainfall changed, estimate is stale", "records", records)
	s.markStale()
}

// GetSystem returns the stored site system.
func (s *Service) GetSystem(ctx context.Context) (domain.System, error) {
	sys, err := s.store.GetSystem(ctx)
	if err != nil {
		return domain.System{}, fmt.Errorf("load system: %w", err)
	}
	if sys == nil {
		return domain.System{}, ErrNotConfigured
	}
	return *sys, nil
}

// UpdateSystem validates and stores the site system.
func (s *Service) UpdateSystem(ctx context.Context, sys domain.System) error {
	if err := sys.Input(domain.DemandSchedule{}).Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSystem(ctx, sys); err != nil {
		return fmt.Errorf("save system: %w", err)
	}
	s.markStale()
	s.logger.Info("system updated",
		"catchment_area_m2", sys.CatchmentAreaM2,
		"runoff_coefficient", sys.RunoffCoefficient,
		"tank_size_m3", sys.TankCapacityM3,
	)
	return nil
}

// GetDemand returns the stored demand schedule, all zeros when none is stored.
func (s *Service) GetDemand(ctx context.Context) (domain.DemandSchedule, error) {
	d, err := s.store.GetDemand(ctx)
	if err != nil {
		return domain.DemandSchedule{}, fmt.Errorf("load demand: %w", err)
	}
	if d == nil {
		return domain.DemandSchedule{}, nil
	}
	return *d, nil
}

// UpdateDemand stores the demand schedule and clears the saved optimum tank,
// which was sized for the old demand.
func (s *Service) UpdateDemand(ctx context.Context, d domain.DemandSchedule) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveDemand(ctx, d); err != nil {
		return fmt.Errorf("save demand: %w", err)
	}
	if err := s.store.ClearOptimum(ctx); err != nil {
		return fmt.Errorf("clear optimum: %w", err)
	}
	s.markStale()
	s.logger.Info("demand updated", "annual_demand_m3", d.AnnualDemandM3())
	return nil
}

// ImportRainfall stores records, skipping dates already stored, and returns
// how many were new.
func (s *Service) ImportRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error) {
	saved, err := s.store.SaveRainfall(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("import rainfall: %w", err)
	}
	s.metrics.RecordsIngested.Add(float64(saved))
	s.metrics.RecordsSkipped.Add(float64(len(records) - saved))
	s.RainfallChanged(ctx, saved)
	s.logger.Info("rainfall imported", "records", len(records), "saved", saved)
	return saved, nil
}

// EstimateReliability simulates the stored system, or override when non-nil.
// Only an estimate of the stored system clears the stale flag.
func (s *Service) EstimateReliability(ctx context.Context, override *domain.System) (domain.EstimateResult, error) {
	input, rain, err := s.prepare(ctx, override)
	if err != nil {
		return domain.EstimateResult{}, err
	}

	start := time.Now()
	res, err := simulation.Estimate(input, rain)
	if err != nil {
		return domain.EstimateResult{}, err
	}
	s.observeSimulation(start)

	if override == nil {
		s.mu.Lock()
		s.stale = false
		last := res
		s.lastEstimate = &last
		s.mu.Unlock()
	}
	s.logger.Info("reliability estimated",
		"tank_size_m3", res.TankSizeM3,
		"annual_success_percent", res.AnnualSuccessPercent,
	)
	return res, nil
}

// CheckPerformance sweeps the stored tank size and its ±25% neighbours.
func (s *Service) CheckPerformance(ctx context.Context, progress ProgressFunc) (simulation.SweepOutcome, error) {
	input, rain, err := s.prepare(ctx, nil)
	if err != nil {
		return simulation.SweepOutcome{}, err
	}
	return s.sweep(ctx, kindPerformance, input, rain, simulation.SymmetricSizes(input.TankCapacityM3), progress)
}

// SizeForBudget sweeps six tank sizes down from maxTankM3, asks the advisor
// for a recommendation, stores the report and publishes it when a publisher
// is configured. A cancelled sweep still produces a report of the prefix.
func (s *Service) SizeForBudget(ctx context.Context, maxTankM3 float64, progress ProgressFunc) (domain.SizingReport, error) {
	if maxTankM3 <= 0 || math.IsNaN(maxTankM3) || math.IsInf(maxTankM3, 0) {
		return domain.SizingReport{}, fmt.Errorf("%w: max tank size %v", domain.ErrInvalidInput, maxTankM3)
	}

	input, rain, err := s.prepare(ctx, nil)
	if err != nil {
		return domain.SizingReport{}, err
	}
	input = input.WithTankCapacity(maxTankM3)

	outcome, err := s.sweep(ctx, kindBudget, input, rain, simulation.BudgetSizes(maxTankM3), progress)
	if err != nil {
		return domain.SizingReport{}, err
	}

	report := domain.SizingReport{
		ID:          s.newID(),
		CreatedAt:   s.clock.Now().UTC(),
		MaxTankM3:   maxTankM3,
		Input:       input,
		UsableYears: rain.UsableYears(),
		Results:     outcome.Results,
		Cancelled:   outcome.Cancelled,
	}
	if len(outcome.Results) > 0 {
		advice, err := simulation.Advise(outcome.Results)
		if err != nil {
			return domain.SizingReport{}, err
		}
		report.Advice = &advice
	}

	// The request context may already be cancelled; the partial report is
	// still stored and published.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.store.SaveReport(persistCtx, report); err != nil {
		return domain.SizingReport{}, fmt.Errorf("save sizing report: %w", err)
	}
	s.publish(persistCtx, report)

	s.logger.Info("sizing report created",
		"report_id", report.ID,
		"max_tank_m3", maxTankM3,
		"results", len(report.Results),
		"cancelled", report.Cancelled,
	)
	return report, nil
}

// GetReport returns a stored sizing report.
func (s *Service) GetReport(ctx context.Context, id string) (domain.SizingReport, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return domain.SizingReport{}, fmt.Errorf("load report %s: %w", id, err)
	}
	if r == nil {
		return domain.SizingReport{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return *r, nil
}

// SaveOptimum stores the tank recommended by a sizing report.
func (s *Service) SaveOptimum(ctx context.Context, reportID string) (domain.EstimateResult, error) {
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return domain.EstimateResult{}, err
	}
	if report.Advice == nil || report.Advice.Recommended == nil {
		return domain.EstimateResult{}, fmt.Errorf("report %s: %w", reportID, ErrNoRecommendation)
	}
	optimum := *report.Advice.Recommended
	if err := s.store.SaveOptimum(ctx, optimum); err != nil {
		return domain.EstimateResult{}, fmt.Errorf("save optimum: %w", err)
	}
	s.logger.Info("optimum tank saved",
		"report_id", reportID,
		"tank_size_m3", optimum.TankSizeM3,
		"annual_success_percent", optimum.AnnualSuccessPercent,
	)
	return optimum, nil
}

// prepare loads the simulation input and a rainfall snapshot, checking the
// preconditions the simulator would otherwise report.
func (s *Service) prepare(ctx context.Context, override *domain.System) (domain.SimulationInput, *domain.RainfallSeries, error) {
	var sys domain.System
	if override != nil {
		sys = *override
	} else {
		stored, err := s.GetSystem(ctx)
		if err != nil {
			return domain.SimulationInput{}, nil, err
		}
		sys = stored
	}

	demand, err := s.GetDemand(ctx)
	if err != nil {
		return domain.SimulationInput{}, nil, err
	}
	if !demand.BudgetIsSet() {
		return domain.SimulationInput{}, nil, fmt.Errorf("%w: demand budget is not set", domain.ErrNoUsableDemandDays)
	}

	input := sys.Input(demand)
	if err := input.Validate(); err != nil {
		return domain.SimulationInput{}, nil, err
	}

	rain, err := s.series(ctx)
	if err != nil {
		return domain.SimulationInput{}, nil, err
	}
	if len(rain.UsableYears()) == 0 {
		return domain.SimulationInput{}, nil, domain.ErrNoUsableYears
	}
	return input, rain, nil
}

// series loads a read-only rainfall snapshot for one computation.
func (s *Service) series(ctx context.Context) (*domain.RainfallSeries, error) {
	records, err := s.store.ListRainfall(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rainfall: %w", err)
	}
	rain, err := domain.NewRainfallSeries(records)
	if err != nil {
		return nil, err
	}
	s.metrics.UsableYears.Set(float64(len(rain.UsableYears())))
	return rain, nil
}

func (s *Service) sweep(ctx context.Context, kind string, input domain.SimulationInput, rain *domain.RainfallSeries, sizes []float64, progress ProgressFunc) (simulation.SweepOutcome, error) {
	start := time.Now()
	last := start
	opts := simulation.Options{
		Progress: func(completed, total int) {
			now := time.Now()
			s.metrics.SimulationsRun.Inc()
			s.metrics.SimulationDuration.Observe(now.Sub(last).Seconds())
			last = now
			if progress != nil {
				progress(completed, total)
			}
		},
	}

	outcome, err := simulation.Sweep(ctx, input, rain, sizes, opts)
	s.metrics.SweepDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		s.metrics.Sweeps.WithLabelValues(kind, "error").Inc()
		return simulation.SweepOutcome{}, err
	case outcome.Cancelled:
		s.metrics.Sweeps.WithLabelValues(kind, "cancelled").Inc()
		s.logger.Warn("sweep cancelled", "kind", kind, "completed", len(outcome.Results), "total", len(sizes))
	default:
		s.metrics.Sweeps.WithLabelValues(kind, "complete").Inc()
	}
	return outcome, nil
}

func (s *Service) publish(ctx context.Context, report domain.SizingReport) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, report); err != nil {
		s.metrics.ReportsPublished.WithLabelValues("error").Inc()
		s.logger.Error("publish sizing report failed", "report_id", report.ID, "error", err)
		return
	}
	s.metrics.ReportsPublished.WithLabelValues("success").Inc()
}

func (s *Service) observeSimulation(start time.Time) {
	s.metrics.SimulationsRun.Inc()
	s.metrics.SimulationDuration.Observe(time.Since(start).Seconds())
}
