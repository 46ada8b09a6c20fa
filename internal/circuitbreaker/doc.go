// Package circuitbreaker implements the circuit breaker pattern used to
// shed load from a failing repository.
//
// A breaker has three states:
//
//   - CLOSED: calls pass through
//   - OPEN: the store keeps failing, calls are rejected with ErrOpen
//   - HALF-OPEN: one trial call decides whether to close again
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	err := registry.Breaker("GetPost").Execute(func() error {
//	    post, err = repo.GetPost(ctx, id)
//	    return err
//	}, nil)
package circuitbreaker
