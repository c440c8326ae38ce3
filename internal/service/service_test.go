package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/repository"
)

// In-memory store fakes shared by the service tests. They mirror the SQL
// stores' contracts, including sql.ErrNoRows for absent rows and for a
// refused quota increment.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) SnapshotQuota(_ context.Context, id uuid.UUID, now, nextReset time.Time) (*repository.QuotaState, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !u.MonthlyResetAt.After(now) {
		u.FreeListingsThisMonth = 0
		u.MonthlyResetAt = nextReset
	}
	return &repository.QuotaState{Used: u.FreeListingsThisMonth, ResetsAt: u.MonthlyResetAt}, nil
}

func (s *fakeUserStore) ConsumeFreeListing(_ context.Context, id uuid.UUID, now, nextReset time.Time, cap int) (*repository.QuotaState, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	used := u.FreeListingsThisMonth
	resetsAt := u.MonthlyResetAt
	if !resetsAt.After(now) {
		used = 0
		resetsAt = nextReset
	}
	if used >= cap {
		return nil, sql.ErrNoRows
	}
	u.FreeListingsThisMonth = used + 1
	u.MonthlyResetAt = resetsAt
	return &repository.QuotaState{Used: u.FreeListingsThisMonth, ResetsAt: u.MonthlyResetAt}, nil
}

// -----------------------------------------------------------------------------
// Catalog
// -----------------------------------------------------------------------------

type fakeCatalogStore struct {
	categories map[uuid.UUID]*domain.Category
	plans      map[uuid.UUID]*domain.PricingPlan
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{
		categories: make(map[uuid.UUID]*domain.Category),
		plans:      make(map[uuid.UUID]*domain.PricingPlan),
	}
}

func (s *fakeCatalogStore) addCategory(c *domain.Category) *domain.Category {
	s.categories[c.ID] = c
	return c
}

func (s *fakeCatalogStore) addPlan(p *domain.PricingPlan) *domain.PricingPlan {
	s.plans[p.ID] = p
	return p
}

func (s *fakeCatalogStore) GetCategory(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (s *fakeCatalogStore) GetPlan(_ context.Context, id uuid.UUID) (*domain.PricingPlan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (s *fakeCatalogStore) CheapestPaidPlan(_ context.Context) (*domain.PricingPlan, error) {
	var paid []*domain.PricingPlan
	for _, p := range s.plans {
		if !p.IsFree() {
			paid = append(paid, p)
		}
	}
	if len(paid) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(paid, func(i, j int) bool { return paid[i].Price < paid[j].Price })
	return paid[0], nil
}

// -----------------------------------------------------------------------------
// Listings
// -----------------------------------------------------------------------------

type fakeListingStore struct {
	listings map[uuid.UUID]*domain.Listing
}

func newFakeListingStore(listings ...*domain.Listing) *fakeListingStore {
	s := &fakeListingStore{listings: make(map[uuid.UUID]*domain.Listing)}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func (s *fakeListingStore) Create(_ context.Context, l *domain.Listing) error {
	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (s *fakeListingStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (s *fakeListingStore) UpdateStatus(_ context.Context, l *domain.Listing) error {
	stored, ok := s.listings[l.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Status = l.Status
	stored.FlagReason = l.FlagReason
	stored.UpdatedAt = l.UpdatedAt
	return nil
}

func (s *fakeListingStore) UpdateBoosts(_ context.Context, l *domain.Listing) error {
	stored, ok := s.listings[l.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.IsFeatured = l.IsFeatured
	stored.FeaturedUntil = l.FeaturedUntil
	stored.BumpedAt = l.BumpedAt
	stored.HasVideo = l.HasVideo
	stored.IsUrgent = l.IsUrgent
	stored.HasMapLocation = l.HasMapLocation
	stored.UpdatedAt = l.UpdatedAt
	return nil
}

func (s *fakeListingStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.listings, id)
	return nil
}

func (s *fakeListingStore) ListActive(_ context.Context, now time.Time, limit int) ([]*domain.Listing, error) {
	var out []*domain.Listing
	for _, l := range s.listings {
		if l.Status == domain.ListingStatusActive && !l.IsExpired(now) {
			cp := *l
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeListingStore) CountsByStatus(_ context.Context) (*domain.ModerationCounts, error) {
	counts := &domain.ModerationCounts{}
	for _, l := range s.listings {
		switch l.Status {
		case domain.ListingStatusPending:
			counts.Pending++
		case domain.ListingStatusActive:
			counts.Active++
		case domain.ListingStatusArchived:
			counts.Archived++
		case domain.ListingStatusFlagged:
			counts.Flagged++
		}
	}
	return counts, nil
}

func (s *fakeListingStore) ClearExpiredFeatured(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, l := range s.listings {
		if l.NormalizeFeatured(now) {
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Add-ons and payments
// -----------------------------------------------------------------------------

type fakeAddOnStore struct {
	addOns map[uuid.UUID]*domain.ListingAddOn
}

func newFakeAddOnStore() *fakeAddOnStore {
	return &fakeAddOnStore{addOns: make(map[uuid.UUID]*domain.ListingAddOn)}
}

func (s *fakeAddOnStore) ListByListing(_ context.Context, listingID uuid.UUID) ([]*domain.ListingAddOn, error) {
	return s.list(func(a *domain.ListingAddOn) bool { return a.ListingID == listingID }), nil
}

func (s *fakeAddOnStore) ListByPayment(_ context.Context, paymentID uuid.UUID) ([]*domain.ListingAddOn, error) {
	return s.list(func(a *domain.ListingAddOn) bool { return a.PaymentID == paymentID }), nil
}

func (s *fakeAddOnStore) Update(_ context.Context, a *domain.ListingAddOn) error {
	if _, ok := s.addOns[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	s.addOns[a.ID] = &cp
	return nil
}

func (s *fakeAddOnStore) list(keep func(*domain.ListingAddOn) bool) []*domain.ListingAddOn {
	var out []*domain.ListingAddOn
	for _, a := range s.addOns {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out
}

type fakePaymentStore struct {
	payments map[uuid.UUID]*domain.Payment
	addOns   *fakeAddOnStore
}

func newFakePaymentStore(addOns *fakeAddOnStore) *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[uuid.UUID]*domain.Payment), addOns: addOns}
}

func (s *fakePaymentStore) CreateWithAddOns(_ context.Context, p *domain.Payment, addOns []*domain.ListingAddOn) error {
	cp := *p
	s.payments[p.ID] = &cp
	for _, a := range addOns {
		ac := *a
		s.addOns.addOns[a.ID] = &ac
	}
	return nil
}

func (s *fakePaymentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s *fakePaymentStore) Update(_ context.Context, p *domain.Payment) error {
	if _, ok := s.payments[p.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}
