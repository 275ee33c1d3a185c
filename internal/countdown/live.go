package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Frame is a rendered countdown pushed to a live subscriber.
type Frame struct {
	DeviceID   string
	Reading    Reading
	DotVisible bool
	At         time.Time
}

// Live re-renders the countdown of one device on every clock tick and blink.
// Following a different device discards frames computed for the previous one.
type Live struct {
	clock  clockwork.Clock
	ticker Ticker
	frames chan Frame

	mu       sync.Mutex
	gen      uint64
	deviceID string
	target   time.Time
	blinker  *Blinker
	cancels  []func()
	stopped  bool
}

func NewLive(clock clockwork.Clock, ticker Ticker, buffer int) *Live {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ticker == nil {
		ticker = NewClockTicker(clock)
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &Live{
		clock:  clock,
		ticker: ticker,
		frames: make(chan Frame, buffer),
	}
}

// Frames delivers rendered frames. It is closed by Stop.
func (l *Live) Frames() <-chan Frame {
	return l.frames
}

// Follow switches the countdown to deviceID and emits a first frame at once.
func (l *Live) Follow(deviceID string, target time.Time) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.cancelLocked()
	l.gen++
	gen := l.gen
	l.deviceID = deviceID
	l.target = target
	l.blinker = NewBlinker()
	blinker := l.blinker
	l.mu.Unlock()

	l.emit(gen)

	stopTick := l.ticker.OnTick(func(time.Time) { l.emit(gen) }, TickInterval)
	stopBlink := blinker.Start(l.ticker, func(bool) { l.emit(gen) })

	l.mu.Lock()
	if l.gen != gen || l.stopped {
		l.mu.Unlock()
		stopTick()
		stopBlink()
		return
	}
	l.cancels = append(l.cancels, stopTick, stopBlink)
	l.mu.Unlock()
}

// Stop releases the tickers and closes Frames.
func (l *Live) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.gen++
	l.cancelLocked()
	close(l.frames)
}

func (l *Live) cancelLocked() {
	for _, cancel := range l.cancels {
		cancel()
	}
	l.cancels = nil
}

// emit renders and publishes a frame unless gen has been superseded.
// Frames are dropped when the subscriber is not keeping up.
func (l *Live) emit(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || gen != l.gen {
		return
	}
	now := l.clock.Now()
	f := Frame{
		DeviceID:   l.deviceID,
		Reading:    Render(l.target, now),
		DotVisible: l.blinker.Visible(),
		At:         now,
	}
	select {
	case l.frames <- f:
	default:
	}
}
