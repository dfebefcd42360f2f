package localclock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs fn every period until the returned cancel func is called.
// Implementations decide the concurrency model (ticker goroutine, event loop,
// manual stepping in tests); the Simulator only relies on this contract.
type Scheduler interface {
	Schedule(period time.Duration, fn func()) (cancel func())
}

// TickerScheduler drives callbacks from a clockwork ticker on its own goroutine.
type TickerScheduler struct {
	clock clockwork.Clock
}

// NewTickerScheduler returns a Scheduler backed by clock's tickers.
func NewTickerScheduler(clock clockwork.Clock) *TickerScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TickerScheduler{clock: clock}
}

// Schedule starts a ticker. Once cancel returns, fn is not running and will
// never be called again. cancel is idempotent but must not be called from fn.
func (s *TickerScheduler) Schedule(period time.Duration, fn func()) (cancel func()) {
	ticker := s.clock.NewTicker(period)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				// A tick and a stop can be ready together; stop wins.
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
		<-done
	}
}
