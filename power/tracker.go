package power

import (
	"context"
	"sync"
	"time"

	"ecochat/internal/logger"
)

const (
	// defaultPeriod is the sampling interval.
	defaultPeriod = 200 * time.Millisecond

	// defaultDecay weights the idle-baseline EMA: baseline' =
	// baseline*decay + sample*(1-decay), updated only while idle.
	defaultDecay = 0.5
)

// ImageLabelSuffix marks reports produced by image analysis.
const ImageLabelSuffix = "(image_analysis)"

// Recorder persists finalized per-prompt measurements.
type Recorder interface {
	AppendPowerReport(ctx context.Context, model string, wh float64) error
	TodayTotalWh(ctx context.Context) (float64, error)
}

// Summary is the live energy dashboard payload.
type Summary struct {
	LatestPromptWh float64 `json:"latest_prompt_Wh"`
	SessionTotalWh float64 `json:"session_total_Wh"`
	TodayTotalWh   float64 `json:"today_total_Wh"`
}

// Tracker integrates GPU power above the idle baseline while a
// generation is active and finalizes one report per prompt when the
// generation ends.
type Tracker struct {
	sampler  Sampler
	recorder Recorder
	period   time.Duration
	decay    float64

	mu          sync.Mutex
	active      bool
	label       string
	baseline    float64
	accumulator float64 // watt-seconds above baseline

	latestPromptWh float64
	sessionTotalWh float64

	startOnce sync.Once
	cancel    context.CancelFunc
}

// NewTracker creates a tracker. The recorder may be nil; reports are
// then kept in memory only.
func NewTracker(sampler Sampler, recorder Recorder) *Tracker {
	return &Tracker{
		sampler:  sampler,
		recorder: recorder,
		period:   defaultPeriod,
		decay:    defaultDecay,
	}
}

// Start launches the sampling loop. Subsequent calls are no-ops.
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		ctx, t.cancel = context.WithCancel(ctx)
		go t.run(ctx)
	})
}

// Stop halts the sampling loop, if started.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) run(ctx context.Context) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Tracker) tick(ctx context.Context) {
	watts, err := t.sampler.GPUPower(ctx)
	if err != nil {
		// Telemetry errors never kill the loop; retry next tick.
		logger.WithPrefix("power").Debug("sample failed", "err", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		t.accumulator += (watts - t.baseline) * t.period.Seconds()
		return
	}

	if t.accumulator > 0 {
		t.finalizeLocked(ctx)
	}
	// Learn the idle baseline only while no generation runs.
	t.baseline = t.baseline*t.decay + watts*(1-t.decay)
}

// finalizeLocked converts the accumulated watt-seconds into one report.
func (t *Tracker) finalizeLocked(ctx context.Context) {
	wh := t.accumulator / 3600.0
	t.latestPromptWh = wh
	t.sessionTotalWh += wh
	t.accumulator = 0

	if t.recorder != nil {
		if err := t.recorder.AppendPowerReport(ctx, t.label, wh); err != nil {
			logger.WithPrefix("power").Warn("failed to persist report", "err", err)
		}
	}
	logger.WithPrefix("power").Info("prompt energy", "model", t.label, "wh", wh)
}

// Begin marks a generation as active, labeled with the model name.
// Image analyses append ImageLabelSuffix so reports distinguish modes.
func (t *Tracker) Begin(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.label = label
}

// End marks the generation as finished. The next idle tick finalizes
// the accumulated measurement.
func (t *Tracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

// ResetSession zeroes the per-session counters, e.g. when a chat is
// reset so the dashboard starts fresh.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latestPromptWh = 0
	t.sessionTotalWh = 0
	t.accumulator = 0
}

// Summary reports the live energy counters plus today's persisted total.
func (t *Tracker) Summary(ctx context.Context) Summary {
	t.mu.Lock()
	s := Summary{
		LatestPromptWh: t.latestPromptWh,
		SessionTotalWh: t.sessionTotalWh,
	}
	t.mu.Unlock()

	if t.recorder != nil {
		if today, err := t.recorder.TodayTotalWh(ctx); err == nil {
			s.TodayTotalWh = today
		}
	}
	return s
}
