package cache

// Stats holds the counters of a single cache.
type Stats struct {
	// Hits is the number of Get calls that returned a live entry.
	Hits int64

	// Misses is the number of Get calls that found no live entry,
	// including hits on expired entries.
	Misses int64

	// Evictions is the number of entries removed to satisfy capacity or
	// memory bounds.
	Evictions int64

	// Expirations is the number of entries removed because their TTL
	// elapsed, whether detected lazily on access or by a sweep.
	Expirations int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when the cache has never
// been read.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
