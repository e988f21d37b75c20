package processor

// Status is a read-only snapshot of the engine for polling monitors.
type Status struct {
	Phase             string   `json:"phase"`
	QueueDepth        int      `json:"queue_depth"`
	Completed         int      `json:"completed"`
	Failed            int      `json:"failed"`
	RegisteredWorkers int      `json:"registered_workers"`
	ActiveWorkers     int      `json:"active_workers"`
	CacheHitRate      float64  `json:"cache_hit_rate"`
	CacheHits         int      `json:"cache_hits"`
	CacheMisses       int      `json:"cache_misses"`
	ConflictsResolved int      `json:"conflicts_resolved"`
	RecentFailures    []string `json:"recent_failures,omitempty"`
}

// GetStatus assembles a snapshot from the engine's parts. Safe to call
// from any goroutine while the loop runs.
func (p *Processor) GetStatus() Status {
	state := p.queue.Status()

	p.mu.Lock()
	phase := p.phase
	failures := make([]string, len(p.recentFailures))
	copy(failures, p.recentFailures)
	p.mu.Unlock()

	status := Status{
		Phase:             phase.String(),
		QueueDepth:        state.ActiveCount,
		Completed:         state.Completed,
		Failed:            state.Failed,
		RegisteredWorkers: len(p.coord.Workers()),
		ActiveWorkers:     p.coord.ActiveWorkers(),
		CacheHitRate:      p.engine.CacheHitRate(),
		RecentFailures:    failures,
	}
	if p.bus != nil {
		status.CacheHits = p.bus.PublishedCount("cache.hit")
		status.CacheMisses = p.bus.PublishedCount("cache.miss")
		status.ConflictsResolved = p.bus.PublishedCount("conflict.resolved")
	}
	return status
}
