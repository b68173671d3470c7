package simulation_test

import (
	"math/rand/v2"
	"testing"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func everyMonth(m3 float64) domain.DemandSchedule {
	var d domain.DemandSchedule
	for i := range d {
		d[i] = m3
	}
	return d
}

func newSeries(t *testing.T, records ...[]domain.DailyRainfallRecord) *domain.RainfallSeries {
	t.Helper()
	var all []domain.DailyRainfallRecord
	for _, r := range records {
		all = append(all, r...)
	}
	s, err := domain.NewRainfallSeries(all)
	require.NoError(t, err)
	return s
}

func constant(mm float64) func(int, int) float64 {
	return func(int, int) float64 { return mm }
}

// randomSeries builds complete years with a dry-spell-heavy random pattern.
func randomSeries(t *testing.T, rng *rand.Rand, years ...int) *domain.RainfallSeries {
	t.Helper()
	var recs [][]domain.DailyRainfallRecord
	for _, y := range years {
		recs = append(recs, domain.CompleteYear(y, func(int, int) float64 {
			if rng.Float64() < 0.7 {
				return 0
			}
			return rng.Float64() * 40
		}))
	}
	return newSeries(t, recs...)
}

func randomDemand(rng *rand.Rand) domain.DemandSchedule {
	var d domain.DemandSchedule
	for i := range d {
		if rng.Float64() < 0.2 {
			continue
		}
		d[i] = rng.Float64() * 2
	}
	d[rng.IntN(12)] = 0.1 + rng.Float64()
	return d
}

func scenarioInput(tankM3 float64) domain.SimulationInput {
	return domain.SimulationInput{
		RunoffCoefficient: 0.8,
		CatchmentAreaM2:   100,
		TankCapacityM3:    tankM3,
		Demand:            everyMonth(0.5),
	}
}

func TestReliability_TankNeverBinding(t *testing.T) {
	rain := newSeries(t, domain.CompleteYear(2023, constant(10)))

	r, err := simulation.Reliability(scenarioInput(1000), rain)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}

func TestReliability_ZeroCapacityAlwaysFails(t *testing.T) {
	rain := newSeries(t, domain.CompleteYear(2023, constant(10)))

	r, err := simulation.Reliability(scenarioInput(0), rain)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestReliability_ZeroDemandSchedule(t *testing.T) {
	rain := newSeries(t, domain.CompleteYear(2023, constant(10)))
	in := scenarioInput(10)
	in.Demand = domain.DemandSchedule{}

	_, err := simulation.Reliability(in, rain)
	require.ErrorIs(t, err, domain.ErrNoUsableDemandDays)
}

func TestReliability_NoUsableYears(t *testing.T) {
	partial := domain.CompleteYear(2023, constant(10))[:200]
	rain := newSeries(t, partial)

	_, err := simulation.Reliability(scenarioInput(10), rain)
	require.ErrorIs(t, err, domain.ErrNoUsableYears)
}

func TestReliability_InvalidInput(t *testing.T) {
	rain := newSeries(t, domain.CompleteYear(2023, constant(10)))

	_, err := simulation.Reliability(scenarioInput(-1), rain)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReliability_ZeroDemandMonthsExcluded(t *testing.T) {
	// 1.5 m³ arrives on 1 January only; demand is 1 m³/day in January.
	// Only January's 31 days count, one of which succeeds.
	rain := newSeries(t, domain.CompleteYear(2023, func(month, day int) float64 {
		if month == 1 && day == 1 {
			return 15
		}
		if month == 1 {
			return 0
		}
		return 50
	}))
	in := domain.SimulationInput{
		RunoffCoefficient: 1,
		CatchmentAreaM2:   100,
		TankCapacityM3:    1000,
		Demand:            domain.DemandSchedule{1},
	}

	r, err := simulation.Reliability(in, rain)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/31.0, r, 1e-12)
}

// sparseSource claims complete years but holds only the listed depths.
type sparseSource struct {
	years  []int
	depths map[[3]int]float64
}

func (s sparseSource) DepthMM(day, month, year int) (float64, bool) {
	v, ok := s.depths[[3]int{year, month, day}]
	return v, ok
}

func (s sparseSource) UsableYears() []int { return s.years }

func TestReliability_MissingDaysCountAsDry(t *testing.T) {
	rain := sparseSource{
		years:  []int{2023},
		depths: map[[3]int]float64{{2023, 3, 1}: 120},
	}
	in := domain.SimulationInput{
		RunoffCoefficient: 1,
		CatchmentAreaM2:   10,
		TankCapacityM3:    50,
		Demand:            domain.DemandSchedule{0, 0, 0.5},
	}

	// 1.2 m³ on 1 March covers two days of 0.5 m³; the other 29 days are dry.
	r, err := simulation.Reliability(in, rain)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/31.0, r, 1e-12)
}

func TestReliability_ChainsAcrossSkippedYears(t *testing.T) {
	// The tank fills on 31 December 2019 and must still be full on
	// 1 January 2021 because incomplete 2020 is skipped, not reset.
	fillOnNewYearsEve := func(month, day int) float64 {
		if month == 12 && day == 31 {
			return 1000
		}
		return 0
	}
	incomplete2020 := domain.CompleteYear(2020, constant(0))[:31]
	rain := newSeries(t,
		domain.CompleteYear(2019, fillOnNewYearsEve),
		incomplete2020,
		domain.CompleteYear(2021, constant(0)),
	)
	in := domain.SimulationInput{
		RunoffCoefficient: 1,
		CatchmentAreaM2:   100,
		TankCapacityM3:    100,
		Demand:            domain.DemandSchedule{1},
	}

	r, err := simulation.Reliability(in, rain)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-12)
}

func TestReliability_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	rain := randomSeries(t, rng, 2019, 2020, 2021)
	in := domain.SimulationInput{RunoffCoefficient: 0.8, CatchmentAreaM2: 80, TankCapacityM3: 6, Demand: randomDemand(rng)}

	first, err := simulation.Reliability(in, rain)
	require.NoError(t, err)
	for range 10 {
		again, err := simulation.Reliability(in, rain)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestReliability_WeaklyMonotonicInCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	rain := randomSeries(t, rng, 2018, 2019)

	for i := range 50 {
		in := domain.SimulationInput{
			RunoffCoefficient: 0.1 + 0.9*rng.Float64(),
			CatchmentAreaM2:   rng.Float64() * 300,
			Demand:            randomDemand(rng),
		}
		small := rng.Float64() * 20
		large := small + rng.Float64()*20

		rs, err := simulation.Reliability(in.WithTankCapacity(small), rain)
		require.NoError(t, err)
		rl, err := simulation.Reliability(in.WithTankCapacity(large), rain)
		require.NoError(t, err)
		assert.LessOrEqual(t, rs, rl, "case %d: capacity %.3f -> %.3f", i, small, large)
	}
}

func TestSimulate_LevelStaysWithinCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	rain := randomSeries(t, rng, 2020, 2021)

	for range 20 {
		in := domain.SimulationInput{
			RunoffCoefficient: rng.Float64(),
			CatchmentAreaM2:   rng.Float64() * 500,
			TankCapacityM3:    rng.Float64() * 15,
			Demand:            randomDemand(rng),
		}
		days := 0
		_, err := simulation.SimulateObserved(in, rain, func(level float64) {
			days++
			assert.GreaterOrEqual(t, level, 0.0)
			assert.LessOrEqual(t, level, in.TankCapacityM3)
		})
		require.NoError(t, err)
		assert.Equal(t, 366+365, days)
	}
}

func TestEstimate(t *testing.T) {
	rain := newSeries(t, domain.CompleteYear(2023, constant(10)))

	res, err := simulation.Estimate(scenarioInput(1000), rain)
	require.NoError(t, err)
	assert.Equal(t, domain.EstimateResult{TankSizeM3: 1000, AnnualSuccessPercent: 100}, res)
}
