package counting

import (
	"github.com/phuslu/log"
)

// CounterSet is the family of counters for one monitored core.
// Kinds that failed to open are absent and skipped from then on.
type CounterSet struct {
	core     int
	counters [numKinds]*Counter
	logger   *log.Logger
}

// Results holds the readings that succeeded, by kind.
type Results map[Kind]Reading

// Get returns the reading for k and whether it was read.
func (r Results) Get(k Kind) (Reading, bool) {
	v, ok := r[k]
	return v, ok
}

// OpenFailures remembers (core, kind) pairs that already failed to open so
// repeats drop to debug level. The zero value is ready to use. Not safe for
// concurrent use.
type OpenFailures struct {
	seen map[failure]struct{}
}

type failure struct {
	core int
	kind Kind
}

// first records the pair and reports whether it had not failed before.
func (f *OpenFailures) first(core int, k Kind) bool {
	if f == nil {
		return true
	}
	if f.seen == nil {
		f.seen = make(map[failure]struct{})
	}
	key := failure{core, k}
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct failed pairs.
func (f *OpenFailures) Len() int {
	if f == nil {
		return 0
	}
	return len(f.seen)
}

// Open opens every kind disabled on core for pid. An open failure is logged
// and leaves that slot absent. A nil logger uses log.DefaultLogger.
func Open(opener Opener, core, pid int, kinds []Kind, logger *log.Logger) *CounterSet {
	return OpenTracked(opener, core, pid, kinds, logger, nil)
}

// OpenTracked is Open with failure tracking: a (core, kind) pair is warned
// about the first time it fails and logged at debug level afterwards.
func OpenTracked(opener Opener, core, pid int, kinds []Kind, logger *log.Logger, failures *OpenFailures) *CounterSet {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	s := &CounterSet{core: core, logger: logger}
	for _, k := range kinds {
		if k < 0 || k >= numKinds || s.counters[k] != nil {
			continue
		}
		h, err := opener.Open(k, pid, core)
		if err != nil {
			e := logger.Debug()
			if failures.first(core, k) {
				e = logger.Warn()
			}
			e.Int("core", core).Str("counter", k.String()).Err(err).Msg("counter unavailable")
			continue
		}
		s.counters[k] = newCounter(k, h)
	}
	return s
}

func (s *CounterSet) Core() int { return s.core }

// Len returns the number of counters that opened.
func (s *CounterSet) Len() int {
	n := 0
	for _, c := range s.counters {
		if c != nil {
			n++
		}
	}
	return n
}

// Activate resets and enables every open counter.
func (s *CounterSet) Activate() {
	for _, c := range s.counters {
		if c == nil {
			continue
		}
		if err := c.activate(); err != nil {
			s.logger.Debug().Int("core", s.core).Err(err).Msg("activate failed")
		}
	}
}

// ReadAndClose reads and releases every open counter exactly once.
// Failed reads are omitted from the results.
func (s *CounterSet) ReadAndClose() Results {
	res := make(Results)
	for i, c := range s.counters {
		if c == nil {
			continue
		}
		r, err := c.ReadAndClose()
		s.counters[i] = nil
		if err != nil {
			s.logger.Debug().Int("core", s.core).Err(err).Msg("counter read skipped")
			continue
		}
		res[c.Kind()] = r
	}
	return res
}

// Close releases every counter still open without reading.
func (s *CounterSet) Close() {
	for i, c := range s.counters {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			s.logger.Debug().Int("core", s.core).Err(err).Msg("counter close failed")
		}
		s.counters[i] = nil
	}
}
