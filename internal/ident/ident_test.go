package ident

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var idPattern = regexp.MustCompile(`^\d+-\d+$`)

func split(t *testing.T, id string) (ms int64, seq int) {
	t.Helper()
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed id %q", id)
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("bad timestamp in %q: %v", id, err)
	}
	seq, err = strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("bad sequence in %q: %v", id, err)
	}
	return ms, seq
}

func TestNextUniqueAndWellFormed(t *testing.T) {
	t.Parallel()
	g := New()

	const n = 5000
	seen := make(map[string]struct{}, n)
	prev := ""
	for i := 0; i < n; i++ {
		id := g.Next()
		if !idPattern.MatchString(id) {
			t.Fatalf("id %q does not match ^\\d+-\\d+$", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q at iteration %d", id, i)
		}
		seen[id] = struct{}{}

		if prev != "" {
			pms, pseq := split(t, prev)
			ms, seq := split(t, id)
			if ms < pms {
				t.Fatalf("timestamp went backwards: %q after %q", id, prev)
			}
			if ms == pms && seq <= pseq {
				t.Fatalf("sequence not increasing within a millisecond: %q after %q", id, prev)
			}
			if ms > pms && seq != 0 {
				t.Fatalf("sequence should reset to 0 after clock advance, got %q after %q", id, prev)
			}
		}
		prev = id
	}
}

func TestNextSequenceResetsOnNewMillisecond(t *testing.T) {
	t.Parallel()
	g := New()

	// Force a same-millisecond pair, then wait out the millisecond.
	a := g.Next()
	b := g.Next()
	ams, _ := split(t, a)
	bms, bseq := split(t, b)
	if ams == bms && bseq == 0 {
		t.Fatalf("same-millisecond ids must have increasing sequences: %q, %q", a, b)
	}

	g2 := New()
	first := g2.Next()
	if _, seq := split(t, first); seq != 0 {
		t.Fatalf("first id from a fresh generator should have sequence 0, got %q", first)
	}
}

func TestNextConcurrent(t *testing.T) {
	t.Parallel()
	g := New()

	const workers = 8
	const perWorker = 500
	out := make(chan string, workers*perWorker)
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for j := 0; j < perWorker; j++ {
				out <- g.Next()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	close(out)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range out {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id under concurrency: %q", id)
		}
		seen[id] = struct{}{}
	}
}
