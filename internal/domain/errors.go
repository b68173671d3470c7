package domain

import "errors"

var (
	// ErrNoUsableYears is returned when the rainfall series holds no complete year.
	ErrNoUsableYears = errors.New("no complete year of daily rainfall records")

	// ErrNoUsableDemandDays is returned when the demand schedule is zero for
	// every month, leaving no day on which reliability can be measured.
	ErrNoUsableDemandDays = errors.New("demand schedule has no days with demand")

	// ErrInsufficientData is returned when sizing advice is requested for an
	// empty result set.
	ErrInsufficientData = errors.New("no estimate results to analyse")

	// ErrInvalidRecord is returned for a rainfall record with an impossible date
	// or a negative depth.
	ErrInvalidRecord = errors.New("invalid rainfall record")

	// ErrInvalidInput is returned for negative areas, capacities or demands.
	ErrInvalidInput = errors.New("invalid simulation input")
)
