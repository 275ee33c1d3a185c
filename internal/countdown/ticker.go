package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Intervals used by the live countdown.
const (
	TickInterval  = time.Second
	BlinkInterval = 500 * time.Millisecond
)

// Ticker schedules periodic callbacks. The returned cancel func stops them and
// is safe to call more than once.
type Ticker interface {
	OnTick(fn func(now time.Time), interval time.Duration) (cancel func())
}

// ClockTicker is a Ticker backed by a clockwork clock.
type ClockTicker struct {
	Clock clockwork.Clock
}

func NewClockTicker(clock clockwork.Clock) *ClockTicker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockTicker{Clock: clock}
}

func (c *ClockTicker) OnTick(fn func(now time.Time), interval time.Duration) func() {
	t := c.Clock.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-t.Chan():
				fn(now)
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// Blinker toggles the separator visibility on every blink tick.
type Blinker struct {
	mu      sync.Mutex
	visible bool
}

func NewBlinker() *Blinker {
	return &Blinker{visible: true}
}

// Toggle flips the state and returns the new visibility.
func (b *Blinker) Toggle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = !b.visible
	return b.visible
}

func (b *Blinker) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Start toggles b every BlinkInterval until the returned func is called.
func (b *Blinker) Start(ticker Ticker, onToggle func(visible bool)) func() {
	return ticker.OnTick(func(time.Time) {
		v := b.Toggle()
		if onToggle != nil {
			onToggle(v)
		}
	}, BlinkInterval)
}
