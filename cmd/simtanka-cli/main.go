// Command simtanka-cli runs tank reliability simulations offline against a
// CSV file of daily rainfall.
//
// Usage:
//
//	simtanka-cli reliability --rain rain.csv --area 120 --runoff 0.8 --tank 5 --demand 0.4
//	simtanka-cli size --rain rain.csv --area 120 --runoff 0.8 --max 10 --demand 0.4,0.4,0.3,...
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
