package pipeline

import (
	"context"
	"strconv"
	"time"

	"floodwatch/internal/alerts"
	"floodwatch/internal/baseline"
	"floodwatch/internal/detector"
	"floodwatch/internal/input/redisstream"
	"floodwatch/internal/logger"
	"floodwatch/internal/metrics"
	"floodwatch/internal/sourcestate"
	"floodwatch/internal/store"
	"floodwatch/internal/transform/traffic"
)

// ProcessedKey is the global processed-record counter in the state store.
const ProcessedKey = "global:processed_records"

// StreamReader is the cursor-based input abstraction: a blocking read that
// returns entries strictly after the given cursor, in order.
type StreamReader interface {
	Read(ctx context.Context, cursor string) ([]redisstream.Message, error)
	Close() error
}

// Config controls the consumption loop.
type Config struct {
	// Stream names the input stream, used for the cursor checkpoint key.
	Stream string

	// FromBeginning ignores any checkpointed cursor and replays the stream
	// from its earliest entry.
	FromBeginning bool

	// ProgressEvery is the record interval between progress log lines.
	ProgressEvery int64

	// RetryPause is the pause after a failed read before retrying.
	RetryPause time.Duration
}

func (c *Config) applyDefaults() {
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 100
	}
	if c.RetryPause <= 0 {
		c.RetryPause = time.Second
	}
}

// Summary is the final accounting reported when the loop stops.
type Summary struct {
	Records int64
	Skipped int64
	Alerts  int64
	Elapsed time.Duration
}

// Rate returns records per second over the run.
func (s Summary) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Records) / s.Elapsed.Seconds()
}

// AlertRate returns alerts per second over the run.
func (s Summary) AlertRate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Alerts) / s.Elapsed.Seconds()
}

// Pipeline is the single-worker consumption loop. Each record runs through
// the per-source state manager, the baseline tracker, the detection layers
// and the alert emitter, in that order; the cursor advances only after the
// record completes, one record at a time.
type Pipeline struct {
	consumer StreamReader
	sources  *sourcestate.Manager
	tracker  *baseline.Tracker
	engine   *detector.Engine
	emitter  *alerts.Emitter
	store    store.Store
	cfg      Config

	cursorKey string
	records   int64
	skipped   int64
	alerts    int64
	started   time.Time
}

// New assembles the detection pipeline.
func New(consumer StreamReader, sources *sourcestate.Manager, tracker *baseline.Tracker, engine *detector.Engine, emitter *alerts.Emitter, st store.Store, cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		consumer:  consumer,
		sources:   sources,
		tracker:   tracker,
		engine:    engine,
		emitter:   emitter,
		store:     st,
		cfg:       cfg,
		cursorKey: "floodwatch:cursor:" + cfg.Stream,
	}
}

// Run consumes the stream until ctx is done. Read failures pause and retry
// with the cursor unchanged; per-record faults are logged and skipped with
// the cursor still advanced. Only cancellation (stop signal or deadline)
// ends the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.started = time.Now()
	cursor := p.loadCursor(ctx)
	logger.Infof("Stream consumption started from cursor %s", cursor)

	for {
		if ctx.Err() != nil {
			break
		}

		batch, err := p.consumer.Read(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Errorf("Failed to read stream: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.RetryPause):
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		stop := false
		for _, msg := range batch {
			if ctx.Err() != nil {
				stop = true
				break
			}
			p.processRecord(ctx, msg)
			cursor = msg.ID
			p.checkpoint(ctx, cursor)
		}
		if stop {
			break
		}
	}

	summary := p.Summary()
	logger.Infof("Stream consumption stopped: records=%d alerts=%d elapsed=%.2fs rate=%.2f/s",
		summary.Records, summary.Alerts, summary.Elapsed.Seconds(), summary.Rate())
	return ctx.Err()
}

// Summary returns the running totals.
func (p *Pipeline) Summary() Summary {
	elapsed := time.Duration(0)
	if !p.started.IsZero() {
		elapsed = time.Since(p.started)
	}
	return Summary{
		Records: p.records,
		Skipped: p.skipped,
		Alerts:  p.alerts,
		Elapsed: elapsed,
	}
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

// processRecord runs one stream entry through the full detection chain. A
// fault in any stage abandons the record but never the loop.
func (p *Pipeline) processRecord(ctx context.Context, msg redisstream.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordFailures.Inc()
			logger.Errorf("Panic processing record %s: %v", msg.ID, r)
		}
	}()

	rec := traffic.Parse(msg.Values)

	obs, err := p.sources.Observe(ctx, rec)
	if err != nil {
		metrics.RecordFailures.Inc()
		logger.Errorf("Failed to update source state for record %s: %v", msg.ID, err)
		return
	}
	if obs == nil {
		p.skipped++
		metrics.RecordsSkipped.Inc()
	}

	stats, err := p.tracker.Tick(ctx)
	if err != nil {
		// Baseline publication is advisory; detection continues without stats.
		logger.Warnf("Failed to publish baseline: %v", err)
		stats = nil
	}
	if stats != nil {
		metrics.BaselineMean.Set(stats.Mean)
		metrics.BaselineStdDev.Set(stats.StdDev)
	}

	for _, cand := range p.engine.Evaluate(rec, obs, stats) {
		if _, err := p.emitter.Emit(ctx, cand, rec); err != nil {
			// No retry: the alert would have to be re-derived from state the
			// cursor has already advanced past.
			logger.Errorf("Failed to emit alert for record %s: %v", msg.ID, err)
			continue
		}
		p.alerts++
	}

	p.records++
	metrics.RecordsProcessed.Inc()
	if err := p.store.Set(ctx, ProcessedKey, strconv.FormatInt(p.records, 10)); err != nil {
		logger.Warnf("Failed to publish processed-record count: %v", err)
	}

	if p.records%p.cfg.ProgressEvery == 0 {
		elapsed := time.Since(p.started).Seconds()
		rate := 0.0
		if elapsed > 0 {
			rate = float64(p.records) / elapsed
		}
		logger.Infof("Processed %d records, %d alerts, rate %.2f/s", p.records, p.alerts, rate)
	}
}

func (p *Pipeline) loadCursor(ctx context.Context) string {
	if p.cfg.FromBeginning {
		return redisstream.StartCursor
	}
	saved, found, err := p.store.Get(ctx, p.cursorKey)
	if err != nil {
		logger.Warnf("Failed to load cursor checkpoint: %v", err)
		return redisstream.StartCursor
	}
	if !found || saved == "" {
		return redisstream.StartCursor
	}
	logger.Infof("Resuming from checkpointed cursor %s", saved)
	return saved
}

func (p *Pipeline) checkpoint(ctx context.Context, cursor string) {
	if err := p.store.Set(ctx, p.cursorKey, cursor); err != nil {
		logger.Warnf("Failed to checkpoint cursor %s: %v", cursor, err)
	}
}
