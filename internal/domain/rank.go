// Package domain contains core business types and interfaces.
//
// This file defines the deterministic feed ordering used by every browse
// and search result set.
package domain

import (
	"math"
	"sort"
	"time"
)

// RankListings orders listings for the feed, in place, and returns the
// slice. Pure over its inputs apart from the featured-flag normalization:
// any listing whose featured window has passed is normalized first so the
// sort and downstream filters agree on featured state.
//
// Sort keys, in priority order:
//  1. featured now, true first
//  2. legacy featured flag, true first
//  3. featured position, ascending, unset (0) last
//  4. bumped at, descending, never-bumped last
//  5. created at, descending
func RankListings(listings []*Listing, now time.Time) []*Listing {
	for _, l := range listings {
		l.NormalizeFeatured(now)
	}

	sort.SliceStable(listings, func(i, j int) bool {
		return rankLess(listings[i], listings[j])
	})
	return listings
}

func rankLess(a, b *Listing) bool {
	if a.IsFeatured != b.IsFeatured {
		return a.IsFeatured
	}
	if a.LegacyFeatured != b.LegacyFeatured {
		return a.LegacyFeatured
	}
	if pa, pb := featuredPos(a), featuredPos(b); pa != pb {
		return pa < pb
	}
	if cmp := compareBumped(a.BumpedAt, b.BumpedAt); cmp != 0 {
		return cmp > 0
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// featuredPos treats an unset position as last among co-featured listings.
func featuredPos(l *Listing) int {
	if l.FeaturedPosition <= 0 {
		return math.MaxInt
	}
	return l.FeaturedPosition
}

// compareBumped orders bump timestamps descending with nils last.
// Returns >0 if a ranks before b, <0 if after, 0 if tied.
func compareBumped(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	}
	return 0
}
