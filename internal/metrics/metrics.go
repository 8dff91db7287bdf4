// Package metrics records build-pipeline counters. Components receive a
// Recorder by injection and default to the no-op implementation, so metrics
// cost nothing unless a real recorder is wired in.
package metrics

import "time"

// Recorder receives pipeline events.
type Recorder interface {
	// DocumentProcessed counts one finished document pass.
	DocumentProcessed(ok bool)

	// BlockExecuted records one sandbox run and its wall-clock duration.
	BlockExecuted(d time.Duration, ok bool)

	// CacheLookup counts a cache hit or miss.
	CacheLookup(hit bool)
}

// Noop is the default Recorder; every method is a no-op.
type Noop struct{}

func (Noop) DocumentProcessed(bool)              {}
func (Noop) BlockExecuted(time.Duration, bool)   {}
func (Noop) CacheLookup(bool)                    {}
