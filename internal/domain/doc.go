// Package domain models daily rainfall records, water demand schedules and the
// value objects exchanged with the tank reliability simulator.
//
// # Data Source
//
// Daily rainfall originates from the Visual Crossing timeline API, requested one
// calendar month at a time with unitGroup=metric. A month payload looks like:
//
//	{"days":[{"datetime":"2021-12-01","precip":1.2},{"datetime":"2021-12-02","precip":null}]}
//
// A null precip is treated as 0 mm of rain for that day. See [ParseMonthPayload].
//
// # Units
//
// Rainfall depth is stored in millimeters. Volumes are cubic meters:
//
//	harvested m³ = depth mm × 0.001 × catchment area m² × runoff coefficient
//
// Demand is a daily volume (m³/day) per calendar month, index 0 = January.
// A month with zero demand is a month where the tank is not used.
//
// # Usable Years
//
// A year is usable (complete) when the number of stored records for it equals
// the number of days in that calendar year, leap years included. Simulation runs
// over every usable year in ascending order; the summary views use only the
// most recent five.
//
// # Immutability
//
// A record, once stored for a (year, month, day), is never overwritten. Later
// downloads or stream messages carrying the same date are skipped.
package domain
