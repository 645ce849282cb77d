package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lookkg/internal/domain"
	"lookkg/internal/repository"

	"github.com/google/uuid"
)

// In-memory repositories used by the service tests. They copy on every read
// and write so services cannot mutate stored state without calling the repository.

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (m *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *fakeUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *fakeUserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *fakeUserRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.FindByID(ctx, id)
}

func (m *fakeUserRepository) FindFirstSeller(_ context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *domain.User
	for _, u := range m.users {
		if !u.IsSeller {
			continue
		}
		if first == nil || u.CreatedAt.Before(first.CreatedAt) {
			u := u
			first = &u
		}
	}
	if first == nil {
		return nil, repository.ErrUserNotFound
	}
	return first, nil
}

func (m *fakeUserRepository) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *fakeUserRepository) UpdateSellerSummary(_ context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.SetSellerSummary(summary)
	m.users[id] = u
	return nil
}

func (m *fakeUserRepository) UpdateSellerLogo(_ context.Context, id uuid.UUID, logo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Seller.Logo = logo
	m.users[id] = u
	return nil
}

func (m *fakeUserRepository) get(id uuid.UUID) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type fakeProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
	users    *fakeUserRepository
}

func newFakeProductRepository(users *fakeUserRepository) *fakeProductRepository {
	return &fakeProductRepository{products: make(map[uuid.UUID]domain.Product), users: users}
}

func cloneProduct(p domain.Product) *domain.Product {
	p.Reviews = append([]domain.Review{}, p.Reviews...)
	if p.Seller != nil {
		ref := *p.Seller
		p.Seller = &ref
	}
	return &p
}

func (m *fakeProductRepository) Create(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *cloneProduct(*product)
	return nil
}

func (m *fakeProductRepository) Update(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	updated := *cloneProduct(*product)
	updated.Reviews = stored.Reviews
	updated.Rating = stored.Rating
	updated.NumReviews = stored.NumReviews
	m.products[product.ID] = updated
	return nil
}

func (m *fakeProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *fakeProductRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (m *fakeProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.FindByID(ctx, id)
}

func (m *fakeProductRepository) FindDetail(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if seller, err := m.users.FindByID(ctx, product.SellerID); err == nil {
		product.Seller = &domain.SellerRef{ID: seller.ID, Seller: seller.DetailCard()}
	}
	return product, nil
}

func (m *fakeProductRepository) matching(filter repository.ProductFilter) []*domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Product
	for _, p := range m.products {
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.SellerID != nil && p.SellerID != *filter.SellerID {
			continue
		}
		if filter.PriceRangeActive() && (p.Price < filter.MinPrice || p.Price > filter.MaxPrice) {
			continue
		}
		if filter.MinRating != 0 && p.Rating < filter.MinRating {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *fakeProductRepository) List(ctx context.Context, filter repository.ProductFilter, offset, limit int) ([]*domain.Product, error) {
	all := m.matching(filter)
	if offset >= len(all) {
		return []*domain.Product{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[offset:end]
	for _, p := range page {
		if seller, err := m.users.FindByID(ctx, p.SellerID); err == nil {
			p.Seller = &domain.SellerRef{ID: seller.ID, Seller: seller.ListingCard()}
		}
	}
	return page, nil
}

func (m *fakeProductRepository) Count(_ context.Context, filter repository.ProductFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *fakeProductRepository) AddReview(_ context.Context, productID uuid.UUID, review domain.Review, summary domain.RatingSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Reviews = append(append([]domain.Review{}, p.Reviews...), review)
	p.Rating = summary.Rating
	p.NumReviews = summary.NumReviews
	m.products[productID] = p
	return nil
}

func (m *fakeProductRepository) get(id uuid.UUID) (domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok
}

type fakeCategoryRepository struct {
	products *fakeProductRepository
}

func (m *fakeCategoryRepository) List(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range m.products.matching(repository.ProductFilter{}) {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeTransactor runs fn directly and counts how many units of work it saw
type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type recordingCleaner struct {
	mu   sync.Mutex
	urls []string
}

func (c *recordingCleaner) Schedule(imageURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append(c.urls, imageURL)
}

func (c *recordingCleaner) scheduled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}
