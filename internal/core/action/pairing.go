package action

import (
	"sort"

	"github.com/zeusync/robosim/internal/core/body"
)

type anchorPair struct {
	source, destination *body.Anchor
	distance            float64
}

// closestPairs greedily pairs the globally closest (source, destination) anchors first, using
// every anchor at most once, until n pairs are formed or anchors run out. Ties keep the order
// of the input anchors.
func closestPairs(n int, sources, destinations []*body.Anchor) []anchorPair {
	if n <= 0 || len(sources) == 0 || len(destinations) == 0 {
		return nil
	}
	candidates := make([]anchorPair, 0, len(sources)*len(destinations))
	for _, s := range sources {
		sp := s.Point()
		for _, d := range destinations {
			candidates = append(candidates, anchorPair{source: s, destination: d, distance: sp.Distance(d.Point())})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	usedSrc := make(map[*body.Anchor]struct{}, n)
	usedDst := make(map[*body.Anchor]struct{}, n)
	var pairs []anchorPair
	for _, c := range candidates {
		if len(pairs) == n {
			break
		}
		if _, ok := usedSrc[c.source]; ok {
			continue
		}
		if _, ok := usedDst[c.destination]; ok {
			continue
		}
		usedSrc[c.source] = struct{}{}
		usedDst[c.destination] = struct{}{}
		pairs = append(pairs, c)
	}
	return pairs
}

// freeAnchors returns the anchors of a that are not linked to target.
func freeAnchors(a body.Anchorable, target body.Anchorable) []*body.Anchor {
	var out []*body.Anchor
	for _, anchor := range a.Anchors() {
		if !anchor.IsLinkedTo(target) {
			out = append(out, anchor)
		}
	}
	return out
}

// closestAnchor returns the anchor of candidates closest to from, ignoring the body owning
// from; nil when there is none.
func closestAnchor(from *body.Anchor, candidates []body.Anchorable) (*body.Anchor, float64) {
	p := from.Point()
	var (
		best     *body.Anchor
		bestDist float64
	)
	for _, c := range candidates {
		if c == from.Owner() {
			continue
		}
		for _, a := range c.Anchors() {
			if d := p.Distance(a.Point()); best == nil || d < bestDist {
				best, bestDist = a, d
			}
		}
	}
	return best, bestDist
}
