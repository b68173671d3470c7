package simulation

// SimulateObserved exposes the day loop with an end-of-day level observer.
var SimulateObserved = simulate
