// Package ident generates task identifiers of the form "<unix-ms>-<seq>".
//
// Identifiers from a single Generator are strictly unique and ordered:
// lexicographic comparison by timestamp, then sequence, matches generation
// order. The sequence part covers 0..4095 within one millisecond; callers
// asking for more than 4096 ids in a single millisecond are stalled until
// the clock advances. That ceiling is accepted, not a defect.
package ident

import (
	"strconv"
	"sync"
	"time"
)

const maxSeq = 4095

type Generator struct {
	mu     sync.Mutex
	lastMS int64
	seq    int
}

func New() *Generator {
	return &Generator{lastMS: -1}
}

// Next returns the next identifier.
//
// On sequence overflow it sleeps until the next millisecond instead of
// spinning, so a pathological burst parks the caller rather than pegging
// a core.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := nowMilli()
	if now < g.lastMS {
		// Clock went backwards (NTP step). Hold at the last observed
		// millisecond so ordering and uniqueness survive.
		now = g.lastMS
	}

	switch {
	case now > g.lastMS:
		g.lastMS = now
		g.seq = 0
	case g.seq < maxSeq:
		g.seq++
	default:
		for now <= g.lastMS {
			time.Sleep(200 * time.Microsecond)
			now = nowMilli()
		}
		g.lastMS = now
		g.seq = 0
	}

	return strconv.FormatInt(g.lastMS, 10) + "-" + strconv.Itoa(g.seq)
}

func nowMilli() int64 { return time.Now().UnixMilli() }
