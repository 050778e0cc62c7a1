package timer

import (
	"sync"
	"time"
)

// ManualSource hands out tickers that only fire when Fire is called. Hosts
// use it for sessions whose clock is driven by explicit calls, and tests use
// it to step time deterministically.
type ManualSource struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewManualSource creates a source with no tickers
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// NewTicker implements Source. The interval is ignored.
func (s *ManualSource) NewTicker(time.Duration) Ticker {
	t := &manualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
	s.mu.Lock()
	s.tickers = append(s.tickers, t)
	s.mu.Unlock()
	return t
}

// Fire delivers one tick to every live ticker and returns how many received
// it. Delivery blocks until each live ticker's reader takes the tick.
func (s *ManualSource) Fire() int {
	s.mu.Lock()
	live := make([]*manualTicker, 0, len(s.tickers))
	for _, t := range s.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	s.tickers = live
	s.mu.Unlock()

	delivered := 0
	now := time.Now()
	for _, t := range live {
		select {
		case t.c <- now:
			delivered++
		case <-t.stopped:
		}
	}
	return delivered
}

// Live returns the number of tickers not yet stopped
func (s *ManualSource) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *manualTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
