package breakdown

import (
	"fmt"

	"github.com/hivelab/hive/internal/cache"
	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/task"
)

// Default chunk sizes. High/critical items chunk fine; medium items chunk
// coarse. Both are configuration, not scheme constants: the source material
// for these numbers is inconsistent, so operators tune them per deployment.
const (
	defaultChunkMinutes       = 15
	defaultMediumChunkMinutes = 30
)

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier sets the complexity classifier.
func WithClassifier(c *Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithChunkMinutes sets the microtask size for high/critical decomposition.
func WithChunkMinutes(n int) Option {
	return func(e *Engine) { e.chunkMinutes = n }
}

// WithMediumChunkMinutes sets the microtask size for medium decomposition.
func WithMediumChunkMinutes(n int) Option {
	return func(e *Engine) { e.mediumChunkMinutes = n }
}

// WithBus sets the event bus for cache hit/miss events.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine decomposes work items into microtasks.
// It is safe for concurrent use; the cache provides its own locking and
// the engine itself holds no mutable state.
type Engine struct {
	classifier         *Classifier
	cache              *cache.Cache
	bus                *event.Bus
	logger             *logging.Logger
	chunkMinutes       int
	mediumChunkMinutes int
}

// NewEngine creates an Engine backed by the given breakdown cache.
func NewEngine(breakdownCache *cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		classifier:         NewClassifier(),
		cache:              breakdownCache,
		logger:             logging.NopLogger(),
		chunkMinutes:       defaultChunkMinutes,
		mediumChunkMinutes: defaultMediumChunkMinutes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify buckets the item by estimated duration.
func (e *Engine) Classify(item *task.WorkItem) task.Complexity {
	return e.classifier.Classify(item)
}

// Breakdown decomposes the item into microtasks according to its
// complexity. The returned microtasks inherit the parent's required
// capabilities and carry sequential indices; their estimated minutes sum
// to the parent's estimated duration.
//
// High and critical items consult the cache by content hash before
// decomposing, and write the result back on a miss. Identical content
// therefore decomposes once (breakdown is idempotent per content hash).
func (e *Engine) Breakdown(item *task.WorkItem) []task.MicroTask {
	complexity := e.classifier.Classify(item)
	item.Complexity = complexity

	totalMinutes := int(item.EstimatedDuration.Minutes())

	var templates []cache.Template
	switch {
	case complexity.NeedsDecomposition():
		templates = e.patternBreakdown(item, totalMinutes)
	case complexity == task.ComplexityMedium:
		templates = chunkTemplates(totalMinutes, e.mediumChunkMinutes, "Phase")
	default:
		templates = singleTemplate(item, totalMinutes)
	}

	return e.instantiate(item, templates)
}

// patternBreakdown handles high and critical items: cache lookup, then
// category pattern, then uniform chunking as the fallback.
func (e *Engine) patternBreakdown(item *task.WorkItem, totalMinutes int) []cache.Template {
	key := cache.Key(item)
	if cached := e.cache.Get(key); cached != nil {
		e.publish(event.NewCacheHitEvent(key))
		e.logger.WithItem(item.ID).Debug("breakdown served from cache", "key", key)
		return cached
	}
	e.publish(event.NewCacheMissEvent(key))

	if totalMinutes <= 0 {
		// Zero or undefined duration: a single microtask, not cached.
		return singleTemplate(item, totalMinutes)
	}

	cat := DetectCategory(item.Title, item.Description)
	templates := patternTemplates(cat, totalMinutes)
	if templates == nil {
		// Pattern lookup failed; uniform chunking is the non-fatal
		// fallback for uncategorized work.
		e.logger.WithItem(item.ID).Debug("no pattern for item, falling back to uniform chunking",
			"category", cat.String())
		templates = chunkTemplates(totalMinutes, e.chunkMinutes, "Step")
	}

	e.cache.Put(key, templates)
	return templates
}

// instantiate turns templates into microtasks bound to the parent item.
func (e *Engine) instantiate(item *task.WorkItem, templates []cache.Template) []task.MicroTask {
	microtasks := make([]task.MicroTask, 0, len(templates))
	for i, tmpl := range templates {
		caps := make([]string, len(item.RequiredCapabilities))
		copy(caps, item.RequiredCapabilities)

		microtasks = append(microtasks, task.MicroTask{
			ID:                   task.NewMicroTaskID(item.ID, i),
			ParentID:             item.ID,
			SequenceIndex:        i,
			Description:          tmpl.Description,
			EstimatedMinutes:     tmpl.EstimatedMinutes,
			ParallelSafe:         tmpl.ParallelSafe,
			Status:               task.MicroPending,
			RequiredCapabilities: caps,
		})
	}
	return microtasks
}

// InvalidateFor removes the cached breakdown for a completed item so a
// future item that happens to share a partial-content hash never reuses a
// stale breakdown.
func (e *Engine) InvalidateFor(item *task.WorkItem) {
	e.cache.Invalidate(cache.Key(item))
}

// CacheHitRate exposes the cache hit rate for status reporting.
func (e *Engine) CacheHitRate() float64 {
	return e.cache.HitRate()
}

func (e *Engine) publish(ev event.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// chunkTemplates splits totalMinutes into uniform chunks labeled
// "<labelPrefix> 1..n". The final chunk absorbs the remainder when the
// duration does not divide evenly: 47 minutes at chunk size 15 yields
// chunks of 15, 15, 15, and 2.
func chunkTemplates(totalMinutes, chunkMinutes int, labelPrefix string) []cache.Template {
	if totalMinutes <= 0 {
		return []cache.Template{{
			Description:      fmt.Sprintf("%s 1", labelPrefix),
			EstimatedMinutes: 0,
		}}
	}
	if chunkMinutes < 1 {
		chunkMinutes = 1
	}

	count := totalMinutes / chunkMinutes
	remainder := totalMinutes % chunkMinutes
	if remainder > 0 {
		count++
	}
	if count == 0 {
		count = 1
		remainder = totalMinutes
	}

	templates := make([]cache.Template, 0, count)
	for i := 0; i < count; i++ {
		minutes := chunkMinutes
		if i == count-1 && remainder > 0 {
			minutes = remainder
		}
		templates = append(templates, cache.Template{
			Description:      fmt.Sprintf("%s %d", labelPrefix, i+1),
			EstimatedMinutes: minutes,
		})
	}
	return templates
}

// singleTemplate wraps the whole item in one microtask. Used for low
// complexity and zero-duration items.
func singleTemplate(item *task.WorkItem, totalMinutes int) []cache.Template {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	return []cache.Template{{
		Description:      item.Title,
		EstimatedMinutes: totalMinutes,
	}}
}
