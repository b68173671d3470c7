package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const rainfallInsertBatch = 500

// GormStorage persists to SQLite or PostgreSQL through GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage opens driver ("sqlite" or "postgres") at dsn.
func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return &GormStorage{db: db}, nil
}

// Migrate creates or updates every table.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&RainfallRow{},
		&DemandRow{},
		&SystemRow{},
		&OptimumRow{},
		&ReportRow{},
	)
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rainfall

func (s *GormStorage) SaveRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error) {
	if err := validateAll(records); err != nil {
		return 0, err
	}
	records = dedupe(records)
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]RainfallRow, len(records))
	for i, r := range records {
		rows[i] = rainfallRow(r)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, rainfallInsertBatch)
	if result.Error != nil {
		return 0, fmt.Errorf("save rainfall: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *GormStorage) ListRainfall(ctx context.Context) ([]domain.DailyRainfallRecord, error) {
	var rows []RainfallRow
	if err := s.db.WithContext(ctx).Order("year, month, day").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rainfall: %w", err)
	}
	out := make([]domain.DailyRainfallRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// System

func (s *GormStorage) GetSystem(ctx context.Context) (*domain.System, error) {
	var row SystemRow
	if err := s.first(ctx, &row, singletonID); err != nil || row.ID == 0 {
		return nil, err
	}
	return &domain.System{
		CatchmentAreaM2:   row.CatchmentAreaM2,
		RunoffCoefficient: row.RunoffCoefficient,
		TankCapacityM3:    row.TankCapacityM3,
	}, nil
}

func (s *GormStorage) SaveSystem(ctx context.Context, sys domain.System) error {
	row := SystemRow{
		ID:                singletonID,
		CatchmentAreaM2:   sys.CatchmentAreaM2,
		RunoffCoefficient: sys.RunoffCoefficient,
		TankCapacityM3:    sys.TankCapacityM3,
	}
	return s.upsert(ctx, &row, "id")
}

// Demand

func (s *GormStorage) GetDemand(ctx context.Context) (*domain.DemandSchedule, error) {
	var rows []DemandRow
	if err := s.db.WithContext(ctx).Order("month").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get demand: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var d domain.DemandSchedule
	for _, r := range rows {
		if r.Month >= 1 && r.Month <= len(d) {
			d[r.Month-1] = r.M3PerDay
		}
	}
	return &d, nil
}

func (s *GormStorage) SaveDemand(ctx context.Context, d domain.DemandSchedule) error {
	rows := make([]DemandRow, len(d))
	for i, v := range d {
		rows[i] = DemandRow{Month: i + 1, M3PerDay: v}
	}
	return s.upsert(ctx, &rows, "month")
}

// Optimum

func (s *GormStorage) GetOptimum(ctx context.Context) (*domain.EstimateResult, error) {
	var row OptimumRow
	if err := s.first(ctx, &row, singletonID); err != nil || row.ID == 0 {
		return nil, err
	}
	return &domain.EstimateResult{TankSizeM3: row.TankSizeM3, AnnualSuccessPercent: row.AnnualSuccessPercent}, nil
}

func (s *GormStorage) SaveOptimum(ctx context.Context, r domain.EstimateResult) error {
	row := OptimumRow{
		ID:                   singletonID,
		TankSizeM3:           r.TankSizeM3,
		AnnualSuccessPercent: r.AnnualSuccessPercent,
		SavedAt:              domain.Clock().Now().UTC(),
	}
	return s.upsert(ctx, &row, "id")
}

func (s *GormStorage) ClearOptimum(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&OptimumRow{}, singletonID).Error
}

// Reports

func (s *GormStorage) GetReport(ctx context.Context, id string) (*domain.SizingReport, error) {
	var row ReportRow
	result := s.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	var report domain.SizingReport
	if err := json.Unmarshal(row.Payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

func (s *GormStorage) SaveReport(ctx context.Context, r domain.SizingReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	row := ReportRow{ID: r.ID, CreatedAt: r.CreatedAt, Payload: payload}
	return s.upsert(ctx, &row, "id")
}

// first loads the row with primary key id; a missing row leaves dest zeroed.
func (s *GormStorage) first(ctx context.Context, dest any, id uint) error {
	result := s.db.WithContext(ctx).First(dest, id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *GormStorage) upsert(ctx context.Context, value any, key string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		UpdateAll: true,
	}).Create(value).Error
}
