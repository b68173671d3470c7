package storage

import (
	"time"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// RainfallRow is one stored day of rainfall.
type RainfallRow struct {
	Year    int     `gorm:"primaryKey;column:year;autoIncrement:false"`
	Month   int     `gorm:"primaryKey;column:month;autoIncrement:false"`
	Day     int     `gorm:"primaryKey;column:day;autoIncrement:false"`
	DepthMM float64 `gorm:"column:depth_mm"`
}

func (RainfallRow) TableName() string { return "rainfall_records" }

func rainfallRow(r domain.DailyRainfallRecord) RainfallRow {
	return RainfallRow{Year: r.Year, Month: r.Month, Day: r.Day, DepthMM: r.DepthMM}
}

func (r RainfallRow) record() domain.DailyRainfallRecord {
	return domain.DailyRainfallRecord{Year: r.Year, Month: r.Month, Day: r.Day, DepthMM: r.DepthMM}
}

// DemandRow holds the daily demand for one month, 1 = January.
type DemandRow struct {
	Month     int       `gorm:"primaryKey;column:month;autoIncrement:false"`
	M3PerDay  float64   `gorm:"column:m3_per_day"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (DemandRow) TableName() string { return "demand_schedule" }

// singletonID keys the tables that only ever hold one row.
const singletonID = 1

// SystemRow is the site's harvesting system.
type SystemRow struct {
	ID                uint      `gorm:"primaryKey;column:id;autoIncrement:false"`
	CatchmentAreaM2   float64   `gorm:"column:catchment_area_m2"`
	RunoffCoefficient float64   `gorm:"column:runoff_coefficient"`
	TankCapacityM3    float64   `gorm:"column:tank_capacity_m3"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (SystemRow) TableName() string { return "systems" }

// OptimumRow is the tank size saved from a sizing recommendation.
type OptimumRow struct {
	ID                   uint      `gorm:"primaryKey;column:id;autoIncrement:false"`
	TankSizeM3           float64   `gorm:"column:tank_size_m3"`
	AnnualSuccessPercent int       `gorm:"column:annual_success_percent"`
	SavedAt              time.Time `gorm:"column:saved_at"`
}

func (OptimumRow) TableName() string { return "optimum_tanks" }

// ReportRow stores a sizing report as its JSON encoding.
type ReportRow struct {
	ID        string    `gorm:"primaryKey;column:id"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	Payload   []byte    `gorm:"column:payload"`
}

func (ReportRow) TableName() string { return "sizing_reports" }
