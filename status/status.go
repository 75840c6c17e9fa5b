// Package status aggregates gateway liveness: loop rate, inbound and
// outbound message rates, and per-backend source health. The gateway
// renders one summary line per second from it.
package status

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// window is the sliding interval rates are computed over.
const window = time.Second

// summaryInterval throttles how often SummaryDue fires.
const summaryInterval = time.Second

type sendSample struct {
	count int
	at    time.Time
}

// Tracker collects rate samples and source liveness. Safe for use from
// the tick loop and tests; backends report through Drain on the tick
// goroutine.
type Tracker struct {
	mu sync.Mutex

	ticks []time.Time
	recvs []time.Time
	sends []sendSample

	sources map[string]bool

	lastFrame time.Duration
	nextLog   time.Time

	now func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sources: map[string]bool{},
		now:     time.Now,
	}
}

// TripTick records one loop iteration.
func (t *Tracker) TripTick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if n := len(t.ticks); n > 0 {
		t.lastFrame = now.Sub(t.ticks[n-1])
	}
	t.ticks = append(t.ticks, now)
	t.ticks = pruneTimes(t.ticks, now)
}

// TripRecv records one inbound message.
func (t *Tracker) TripRecv() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.recvs = append(t.recvs, now)
	t.recvs = pruneTimes(t.recvs, now)
}

// AddSent records the outbound message count of one tick.
func (t *Tracker) AddSent(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sends = append(t.sends, sendSample{count: count, at: now})
	for len(t.sends) > 0 && now.Sub(t.sends[0].at) > window {
		t.sends = t.sends[1:]
	}
}

// SourceLive implements input.StatusSink.
func (t *Tracker) SourceLive(name string, live bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[name] = live
}

// TickRate returns loop iterations per second over the window.
func (t *Tracker) TickRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return rate(t.ticks, t.now())
}

// RecvRate returns inbound messages per second over the window.
func (t *Tracker) RecvRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return rate(t.recvs, t.now())
}

// SendRate returns outbound messages per second over the window.
func (t *Tracker) SendRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if len(t.sends) == 0 {
		return 0
	}
	elapsed := now.Sub(t.sends[0].at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	total := 0
	for _, s := range t.sends {
		total += s.count
	}
	return float64(total) / elapsed
}

// LastFrameTime returns the gap between the two most recent ticks.
func (t *Tracker) LastFrameTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFrame
}

// Summary renders the one-line status: rates first, then each source
// in name order.
func (t *Tracker) Summary() string {
	parts := []string{
		fmt.Sprintf("TICK:%.0f/s", t.TickRate()),
		fmt.Sprintf("RECV:%.0f/s", t.RecvRate()),
		fmt.Sprintf("SEND:%.1f/s", t.SendRate()),
	}

	t.mu.Lock()
	names := make([]string, 0, len(t.sources))
	for name := range t.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "down"
		if t.sources[name] {
			state = "up"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", name, state))
	}
	t.mu.Unlock()

	return strings.Join(parts, "  ")
}

// SummaryDue returns the summary line at most once per second,
// reporting false between emissions.
func (t *Tracker) SummaryDue() (string, bool) {
	t.mu.Lock()
	now := t.now()
	if now.Before(t.nextLog) {
		t.mu.Unlock()
		return "", false
	}
	t.nextLog = now.Add(summaryInterval)
	t.mu.Unlock()

	return t.Summary(), true
}

func pruneTimes(samples []time.Time, now time.Time) []time.Time {
	for len(samples) > 0 && now.Sub(samples[0]) > window {
		samples = samples[1:]
	}
	return samples
}

// rate divides sample count by the age of the oldest sample, matching
// how the window is pruned.
func rate(samples []time.Time, now time.Time) float64 {
	if len(samples) == 0 {
		return 0
	}
	elapsed := now.Sub(samples[0]).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(samples)) / elapsed
}
