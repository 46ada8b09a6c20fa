package circuitbreaker_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blog/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	trip := func() {
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordFailure()
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	Describe("NewCircuitBreaker", func() {
		It("should create a circuit breaker in closed state", func() {
			cb = circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State transitions", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
		})

		Context("when in CLOSED state", func() {
			It("should allow calls", func() {
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should remain closed after failures below threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should open after reaching the failure threshold", func() {
				trip()
			})
		})

		Context("when in OPEN state", func() {
			BeforeEach(trip)

			It("should block calls", func() {
				Expect(cb.Allow()).To(BeFalse())
			})

			It("should move to HALF-OPEN after the reset timeout", func() {
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})

			It("should stay OPEN before the reset timeout", func() {
				time.Sleep(50 * time.Millisecond)
				Expect(cb.Allow()).To(BeFalse())
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})
		})

		Context("when in HALF-OPEN state", func() {
			BeforeEach(func() {
				trip()
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})

			It("should hold further calls while the trial call is in flight", func() {
				Expect(cb.Allow()).To(BeFalse())
			})

			It("should close on success", func() {
				cb.RecordSuccess()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should open again on failure", func() {
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
				Expect(cb.Allow()).To(BeFalse())
			})
		})
	})

	Describe("RecordSuccess", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
		})

		It("should reset the failure count", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Execute", func() {
		var errBoom = errors.New("boom")
		var errIgnored = errors.New("ignored")

		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(2, time.Minute)
		})

		It("should run the call and return its error", func() {
			calls := 0
			err := cb.Execute(func() error {
				calls++
				return errBoom
			}, nil)
			Expect(err).To(MatchError(errBoom))
			Expect(calls).To(Equal(1))
		})

		It("should reject calls with ErrOpen once tripped", func() {
			fail := func() error { return errBoom }
			Expect(cb.Execute(fail, nil)).To(MatchError(errBoom))
			Expect(cb.Execute(fail, nil)).To(MatchError(errBoom))

			calls := 0
			err := cb.Execute(func() error {
				calls++
				return nil
			}, nil)
			Expect(err).To(MatchError(circuitbreaker.ErrOpen))
			Expect(calls).To(BeZero())
		})

		It("should not count errors the classifier ignores", func() {
			ignore := func(err error) bool { return !errors.Is(err, errIgnored) }
			for i := 0; i < 5; i++ {
				err := cb.Execute(func() error { return errIgnored }, ignore)
				Expect(err).To(MatchError(errIgnored))
			}
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State.String", func() {
		DescribeTable("string representation",
			func(state circuitbreaker.State, expected string) {
				Expect(state.String()).To(Equal(expected))
			},
			Entry("closed", circuitbreaker.StateClosed, "CLOSED"),
			Entry("open", circuitbreaker.StateOpen, "OPEN"),
			Entry("half-open", circuitbreaker.StateHalfOpen, "HALF-OPEN"),
			Entry("unknown", circuitbreaker.State(42), "UNKNOWN"),
		)
	})
})
