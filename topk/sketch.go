package topk

import (
	"sync"
	"time"

	"github.com/keilerkonzept/topk/sliding"
)

// SketchParams configures a TopKSketch.
type SketchParams struct {
	K          int
	WindowSize int
	Width      int
	Depth      int
	// TickSize is the number of requests between two ticks of the sketch.
	TickSize uint64
	// MaxSharePercent is the share of the window capacity an item may
	// reach before it is reported.
	MaxSharePercent int
	// ActivationRPS gates reporting: ticks measured below this rate report
	// nothing.
	ActivationRPS int
}

// TopKSketch counts items over a sliding window of ticks and reports the
// heavy hitters. Safe for concurrent use.
type TopKSketch struct {
	mu       sync.Mutex
	sketch   *sliding.Sketch
	tickSize uint64
	tickReq  uint64
	ticks    uint64

	maxSharePercent int
	activationRPS   int
	threshold       uint32
	lastTick        time.Time

	// reported maps an item to the tick it was last reported at, so an
	// item is reported once per window.
	reported map[string]uint64

	now func() time.Time
}

// New creates a sketch. A zero TickSize defaults to 1000.
func New(params SketchParams) *TopKSketch {
	if params.TickSize == 0 {
		params.TickSize = 1000
	}

	windowCapacity := uint64(params.WindowSize) * params.TickSize
	threshold := uint32(windowCapacity * uint64(params.MaxSharePercent) / 100)

	cs := &TopKSketch{
		sketch: sliding.New(params.K, params.WindowSize,
			sliding.WithWidth(params.Width),
			sliding.WithDepth(params.Depth)),
		tickSize:        params.TickSize,
		maxSharePercent: params.MaxSharePercent,
		activationRPS:   params.ActivationRPS,
		threshold:       threshold,
		reported:        make(map[string]uint64),
		now:             time.Now,
	}
	cs.lastTick = cs.now()
	return cs
}

// ProcessTick counts one request of item. Every TickSize requests the
// sketch ticks and the items above the share threshold are returned,
// provided the rate of the elapsed tick reached ActivationRPS.
func (cs *TopKSketch) ProcessTick(item string) []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.sketch.Incr(item)
	cs.tickReq++
	if cs.tickReq < cs.tickSize {
		return nil
	}

	now := cs.now()
	elapsed := now.Sub(cs.lastTick)
	cs.lastTick = now
	cs.tickReq = 0
	cs.ticks++
	cs.sketch.Tick()
	cs.expireReported()

	if !cs.active(elapsed) {
		return nil
	}

	var heavy []string
	for _, it := range cs.sketch.SortedSlice() {
		if it.Count <= cs.threshold {
			break
		}
		if _, seen := cs.reported[it.Item]; seen {
			continue
		}
		cs.reported[it.Item] = cs.ticks
		heavy = append(heavy, it.Item)
	}
	return heavy
}

// active reports whether a tick of elapsed duration ran at ActivationRPS
// or above. A zero duration counts as active.
func (cs *TopKSketch) active(elapsed time.Duration) bool {
	if elapsed <= 0 {
		return true
	}
	rps := float64(cs.tickSize) / elapsed.Seconds()
	return rps >= float64(cs.activationRPS)
}

func (cs *TopKSketch) expireReported() {
	window := uint64(cs.sketch.WindowSize)
	for item, at := range cs.reported {
		if cs.ticks-at >= window {
			delete(cs.reported, item)
		}
	}
}
