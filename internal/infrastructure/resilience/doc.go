/*
Package resilience provides circuit breaker implementation for graceful degradation.

# Overview

This package implements the circuit breaker pattern. The labctl client wraps
every call to the codelab server in a breaker so a server that is down fails
fast instead of stalling each command through its retry budget.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable trip predicate, cooldown and probe count
- Error classification, so expected errors do not trip the circuit
- State change callbacks for monitoring

# Usage

	// Create a circuit breaker
	breaker := resilience.New("codelab-api", resilience.Settings{
		Probes:   2,
		Cooldown: 10 * time.Second,
		ShouldTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	// Execute request through breaker
	err := breaker.Do(func() error {
		_, err := client.Health(ctx)
		return err
	})

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
