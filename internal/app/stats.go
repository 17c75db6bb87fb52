package app

import "sync"

// Statistics counts what the decode stage has done.
type Statistics struct {
	mu sync.Mutex
	s  StatsSnapshot
}

// StatsSnapshot is a copy of the counters at one point in time.
type StatsSnapshot struct {
	Read          int
	Decoded       int
	Failed        int
	CRCMismatches int
	Dropped       int
	WriteFailed   int
	// ByKind counts decoded frames by message kind, or "df<N>" for
	// passthrough frames.
	ByKind map[string]int
}

func newStatistics() *Statistics {
	return &Statistics{s: StatsSnapshot{ByKind: make(map[string]int)}}
}

func (st *Statistics) add(fn func(s *StatsSnapshot)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
}

func (st *Statistics) read()        { st.add(func(s *StatsSnapshot) { s.Read++ }) }
func (st *Statistics) failed()      { st.add(func(s *StatsSnapshot) { s.Failed++ }) }
func (st *Statistics) crcMismatch() { st.add(func(s *StatsSnapshot) { s.CRCMismatches++ }) }
func (st *Statistics) dropped()     { st.add(func(s *StatsSnapshot) { s.Dropped++ }) }
func (st *Statistics) writeFailed() { st.add(func(s *StatsSnapshot) { s.WriteFailed++ }) }

func (st *Statistics) decoded(kind string) {
	st.add(func(s *StatsSnapshot) {
		s.Decoded++
		s.ByKind[kind]++
	})
}

// Snapshot copies the counters.
func (st *Statistics) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := st.s
	out.ByKind = make(map[string]int, len(st.s.ByKind))
	for k, v := range st.s.ByKind {
		out.ByKind[k] = v
	}
	return out
}
