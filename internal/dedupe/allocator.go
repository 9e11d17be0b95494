package dedupe

import (
	"fmt"
	"strconv"
	"strings"
)

// Sequencer hands out canonical IDs per prefix ("ORG_0001", "TRT_0042").
// It is scoped to one build run and seeded from the previous directory
// output, replacing the module-level counter the original aggregation
// scripts kept in process memory.
type Sequencer struct {
	next map[string]int
}

// NewSequencer returns an empty allocator; every prefix starts at 1.
func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[string]int)}
}

// Seed sets the next sequence number for a prefix if it is higher than what
// the allocator already knows.
func (s *Sequencer) Seed(prefix string, next int) {
	if next > s.next[prefix] {
		s.next[prefix] = next
	}
}

// Observe bumps the sequence past an existing canonical ID so reissued
// prefixes never collide with IDs assigned in earlier runs.
func (s *Sequencer) Observe(canonicalID string) {
	prefix, num, ok := splitCanonicalID(canonicalID)
	if !ok {
		return
	}
	s.Seed(prefix, num+1)
}

// Next allocates the next ID for a prefix.
func (s *Sequencer) Next(prefix string) string {
	n := s.next[prefix]
	if n < 1 {
		n = 1
	}
	s.next[prefix] = n + 1
	return fmt.Sprintf("%s_%04d", prefix, n)
}

// Sequences returns the next-available number per prefix for persisting in
// the run output.
func (s *Sequencer) Sequences() map[string]int {
	out := make(map[string]int, len(s.next))
	for prefix, n := range s.next {
		if n < 1 {
			n = 1
		}
		out[prefix] = n
	}
	return out
}

func splitCanonicalID(id string) (string, int, bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 {
		return "", 0, false
	}
	num, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return id[:idx], num, true
}
