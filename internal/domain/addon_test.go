package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtaani/soko/internal/money"
)

func TestAddOnType_IsValid(t *testing.T) {
	for _, typ := range []AddOnType{
		AddOnFeaturedWeek, AddOnBumpToTop, AddOnExtraPhotos,
		AddOnVideoSupport, AddOnUrgentTag, AddOnMapLocation,
	} {
		assert.True(t, typ.IsValid(), typ)
	}
	assert.False(t, AddOnType("gold_border").IsValid())
}

func TestAddOnType_Exclusive(t *testing.T) {
	assert.True(t, AddOnFeaturedWeek.Exclusive())
	assert.True(t, AddOnUrgentTag.Exclusive())
	assert.False(t, AddOnBumpToTop.Exclusive())
	assert.False(t, AddOnExtraPhotos.Exclusive())
	assert.False(t, AddOnVideoSupport.Exclusive())
	assert.False(t, AddOnMapLocation.Exclusive())
}

func TestAddOnPrice(t *testing.T) {
	price, ok := AddOnPrice(AddOnFeaturedWeek)
	require.True(t, ok)
	assert.Equal(t, money.Amount(500), price)

	price, ok = AddOnPrice(AddOnExtraPhotos)
	require.True(t, ok)
	assert.Equal(t, money.Amount(50), price)

	_, ok = AddOnPrice(AddOnType("gold_border"))
	assert.False(t, ok)
}

func TestListingAddOn_Blocks(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	tests := []struct {
		name  string
		addon ListingAddOn
		typ   AddOnType
		want  bool
	}{
		{"active unexpired featured blocks featured", ListingAddOn{Type: AddOnFeaturedWeek, IsActive: true, ExpiresAt: &future}, AddOnFeaturedWeek, true},
		{"expired featured does not block", ListingAddOn{Type: AddOnFeaturedWeek, IsActive: true, ExpiresAt: &past}, AddOnFeaturedWeek, false},
		{"inactive featured does not block", ListingAddOn{Type: AddOnFeaturedWeek, IsActive: false, ExpiresAt: &future}, AddOnFeaturedWeek, false},
		{"featured does not block urgent", ListingAddOn{Type: AddOnFeaturedWeek, IsActive: true, ExpiresAt: &future}, AddOnUrgentTag, false},
		{"active urgent blocks urgent", ListingAddOn{Type: AddOnUrgentTag, IsActive: true}, AddOnUrgentTag, true},
		{"bump never blocks bump", ListingAddOn{Type: AddOnBumpToTop, IsActive: true}, AddOnBumpToTop, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.addon
			assert.Equal(t, tt.want, a.Blocks(tt.typ, now))
		})
	}
}

func TestListingAddOn_Apply_FeaturedWeek(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	listing := &Listing{Status: ListingStatusActive}
	addon := &ListingAddOn{Type: AddOnFeaturedWeek, PurchasedAt: now}

	changed := addon.Apply(listing, now)
	assert.True(t, changed)
	assert.True(t, listing.IsFeatured)
	assert.True(t, addon.IsActive)
	require.NotNil(t, addon.ExpiresAt)
	assert.Equal(t, now.Add(FeaturedWeekDuration), *addon.ExpiresAt)
	require.NotNil(t, listing.FeaturedUntil)
	assert.Equal(t, *addon.ExpiresAt, *listing.FeaturedUntil)

	// Applying again later must not push featuredUntil further out
	changed = addon.Apply(listing, now.Add(time.Hour))
	assert.False(t, changed)
	assert.Equal(t, now.Add(FeaturedWeekDuration), *listing.FeaturedUntil)
}

func TestListingAddOn_Apply_Bump(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	listing := &Listing{Status: ListingStatusActive}

	first := &ListingAddOn{Type: AddOnBumpToTop, PurchasedAt: t0}
	assert.True(t, first.Apply(listing, t0))
	require.NotNil(t, listing.BumpedAt)
	assert.Equal(t, t0, *listing.BumpedAt)
	// Bumps carry no persistent active state
	assert.False(t, first.IsActive)
	assert.Nil(t, first.ExpiresAt)

	second := &ListingAddOn{Type: AddOnBumpToTop, PurchasedAt: t1}
	assert.True(t, second.Apply(listing, t1))
	assert.Equal(t, t1, *listing.BumpedAt)

	// Re-applying the older purchase never moves the stamp backwards
	assert.False(t, first.Apply(listing, t1.Add(time.Minute)))
	assert.Equal(t, t1, *listing.BumpedAt)
}

func TestListingAddOn_Apply_Flags(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	listing := &Listing{Status: ListingStatusActive}

	urgent := &ListingAddOn{Type: AddOnUrgentTag, PurchasedAt: now}
	assert.True(t, urgent.Apply(listing, now))
	assert.True(t, listing.IsUrgent)
	assert.False(t, urgent.Apply(listing, now))

	video := &ListingAddOn{Type: AddOnVideoSupport, PurchasedAt: now}
	assert.True(t, video.Apply(listing, now))
	assert.True(t, listing.HasVideo)

	pin := &ListingAddOn{Type: AddOnMapLocation, PurchasedAt: now}
	assert.True(t, pin.Apply(listing, now))
	assert.True(t, listing.HasMapLocation)

	// Extra photos never touch the listing row
	photos := &ListingAddOn{Type: AddOnExtraPhotos, PurchasedAt: now}
	assert.False(t, photos.Apply(listing, now))
	assert.True(t, photos.IsActive)
}
