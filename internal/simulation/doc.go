// Package simulation runs the daily tank water balance over complete years of
// rainfall, sweeps it across candidate tank sizes and turns a budget sweep
// into a sizing recommendation.
//
// Everything here is synchronous and free of I/O. A [RainfallSource] is only
// read, so one series may back any number of concurrent sweeps.
package simulation
