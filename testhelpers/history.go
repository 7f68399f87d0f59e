package testhelpers

import (
	"context"
	"errors"
)

var ErrNoRecord = errors.New("no record")

// History is an in-memory head-to-head record keyed by name pair.
type History map[[2]string][2]int

func (h History) Add(a, b string, aWins, bWins int) {
	h[[2]string{a, b}] = [2]int{aWins, bWins}
}

// HeadToHead looks up a then the mirrored b-a record.
func (h History) HeadToHead(_ context.Context, a, b string) (int, int, error) {
	if r, ok := h[[2]string{a, b}]; ok {
		return r[0], r[1], nil
	}
	if r, ok := h[[2]string{b, a}]; ok {
		return r[1], r[0], nil
	}
	return 0, 0, ErrNoRecord
}

// Complete fills in a 0-0 record for every pair not already present.
func (h History) Complete(as, bs []string) History {
	for _, a := range as {
		for _, b := range bs {
			if _, _, err := h.HeadToHead(context.Background(), a, b); err != nil {
				h.Add(a, b, 0, 0)
			}
		}
	}
	return h
}
