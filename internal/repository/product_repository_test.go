package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lookkg/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSeller(t *testing.T, users UserRepository) *domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	id := uuid.New()
	seller := &domain.User{
		ID:           id,
		Name:         "Seller " + id.String()[:8],
		Email:        id.String() + "@example.com",
		PasswordHash: "hash",
		IsSeller:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	seller.Seller.Name = "Shop " + id.String()[:8]
	seller.Seller.Logo = "/images/logo.png"
	seller.Seller.PayMethod.MBank = "0555"

	require.NoError(t, users.Create(context.Background(), seller))
	return seller
}

func createProduct(t *testing.T, products ProductRepository, sellerID uuid.UUID, createdAt time.Time, mutate func(*domain.Product)) *domain.Product {
	t.Helper()

	p := domain.NewPlaceholderProduct(sellerID, createdAt.UTC().Truncate(time.Millisecond))
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, products.Create(context.Background(), p))
	return p
}

func TestProductRepository_ListPaginatesNewestFirst(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seller := createSeller(t, b.users)

			base := time.Now().Add(-time.Hour)
			var created []*domain.Product
			for i := 0; i < 10; i++ {
				created = append(created, createProduct(t, b.products, seller.ID, base.Add(time.Duration(i)*time.Minute), nil))
			}

			filter := ProductFilter{SellerID: &seller.ID}

			total, err := b.products.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, 10, total)

			page, err := b.products.List(ctx, filter, 4, 4)
			require.NoError(t, err)
			require.Len(t, page, 4)

			// Newest first: page two holds the 5th..8th newest products.
			for i, p := range page {
				assert.Equal(t, created[5-i].ID, p.ID)
				require.NotNil(t, p.Seller)
				assert.Equal(t, seller.ID, p.Seller.ID)
				require.NotNil(t, p.Seller.Seller)
				assert.Equal(t, seller.Seller.Name, p.Seller.Seller.Name)
				assert.Nil(t, p.Seller.Seller.Rating, "listing card carries name and logo only")
			}

			last, err := b.products.List(ctx, filter, 8, 4)
			require.NoError(t, err)
			assert.Len(t, last, 2)
		})
	}
}

func TestProductRepository_Filters(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seller := createSeller(t, b.users)
			category := "shoes-" + uuid.NewString()[:8]

			cheap := createProduct(t, b.products, seller.ID, time.Now(), func(p *domain.Product) {
				p.Name = "Red 100% Cotton_Shirt"
				p.Price = 5
				p.Rating = 4.5
			})
			pricey := createProduct(t, b.products, seller.ID, time.Now(), func(p *domain.Product) {
				p.Name = "Blue Sneaker"
				p.Price = 50
				p.Category = category
				p.Rating = 2
			})

			list := func(f ProductFilter) []uuid.UUID {
				f.SellerID = &seller.ID
				got, err := b.products.List(ctx, f, 0, 10)
				require.NoError(t, err)
				ids := make([]uuid.UUID, 0, len(got))
				for _, p := range got {
					ids = append(ids, p.ID)
				}
				return ids
			}

			assert.ElementsMatch(t, []uuid.UUID{cheap.ID}, list(ProductFilter{Name: "cotton"}))
			assert.ElementsMatch(t, []uuid.UUID{cheap.ID}, list(ProductFilter{Name: "100%"}))
			assert.Empty(t, list(ProductFilter{Name: "100_"}))
			assert.ElementsMatch(t, []uuid.UUID{pricey.ID}, list(ProductFilter{Category: category}))
			assert.ElementsMatch(t, []uuid.UUID{pricey.ID}, list(ProductFilter{MinPrice: 10, MaxPrice: 100}))
			assert.ElementsMatch(t, []uuid.UUID{cheap.ID, pricey.ID}, list(ProductFilter{MinPrice: 10}),
				"a lone minimum price does not filter")
			assert.ElementsMatch(t, []uuid.UUID{cheap.ID}, list(ProductFilter{MinRating: 4}))
			assert.Equal(t, []uuid.UUID{cheap.ID, pricey.ID}, list(ProductFilter{Sort: SortPriceAsc}))
			assert.Equal(t, []uuid.UUID{pricey.ID, cheap.ID}, list(ProductFilter{Sort: SortPriceDesc}))
			assert.Equal(t, []uuid.UUID{cheap.ID, pricey.ID}, list(ProductFilter{Sort: SortTopRated}))

			missing := uuid.Nil
			got, err := b.products.List(ctx, ProductFilter{SellerID: &missing}, 0, 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestProductRepository_CategoriesAreDistinct(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			seller := createSeller(t, b.users)
			category := "hats-" + uuid.NewString()[:8]

			for i := 0; i < 3; i++ {
				createProduct(t, b.products, seller.ID, time.Now(), func(p *domain.Product) { p.Category = category })
			}

			categories, err := b.categories.List(context.Background())
			require.NoError(t, err)

			count := 0
			for _, c := range categories {
				if c == category {
					count++
				}
			}
			assert.Equal(t, 1, count)
			assert.IsIncreasing(t, categories)
		})
	}
}

func TestProductRepository_AddReview(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seller := createSeller(t, b.users)
			product := createProduct(t, b.products, seller.ID, time.Now(), nil)
			reviewer := uuid.New()

			review := domain.NewReview(reviewer, "Aibek", 4, "good", time.Now().UTC().Truncate(time.Millisecond))
			require.NoError(t, b.products.AddReview(ctx, product.ID, review, domain.RatingSummary{Rating: 4, NumReviews: 1}))

			again := domain.NewReview(reviewer, "Aibek", 2, "changed my mind", time.Now().UTC())
			err := b.products.AddReview(ctx, product.ID, again, domain.RatingSummary{Rating: 3, NumReviews: 2})
			assert.ErrorIs(t, err, ErrDuplicateReview)

			stored, err := b.products.FindByID(ctx, product.ID)
			require.NoError(t, err)
			require.Len(t, stored.Reviews, 1)
			assert.Equal(t, reviewer, stored.Reviews[0].ReviewerID)
			assert.Equal(t, 4.0, stored.Rating)
			assert.Equal(t, 1, stored.NumReviews)

			err = b.products.AddReview(ctx, uuid.New(), domain.NewReview(uuid.New(), "x", 5, "", time.Now()), domain.RatingSummary{})
			assert.ErrorIs(t, err, ErrProductNotFound)
		})
	}
}

func TestProductRepository_FindDetailPopulatesSeller(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seller := createSeller(t, b.users)
			require.NoError(t, b.users.UpdateSellerSummary(ctx, seller.ID, domain.RatingSummary{Rating: 4.5, NumReviews: 2}))
			product := createProduct(t, b.products, seller.ID, time.Now(), nil)

			detail, err := b.products.FindDetail(ctx, product.ID)
			require.NoError(t, err)
			require.NotNil(t, detail.Seller.Seller)

			card := detail.Seller.Seller
			assert.Equal(t, seller.Seller.Name, card.Name)
			require.NotNil(t, card.Rating)
			assert.Equal(t, 4.5, *card.Rating)
			require.NotNil(t, card.NumReviews)
			assert.Equal(t, 2, *card.NumReviews)
			require.NotNil(t, card.PayMethod)
			assert.Equal(t, "0555", card.PayMethod.MBank)

			_, err = b.products.FindDetail(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrProductNotFound)
		})
	}
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			seller := createSeller(t, b.users)
			product := createProduct(t, b.products, seller.ID, time.Now(), nil)
			require.NoError(t, b.products.AddReview(ctx, product.ID,
				domain.NewReview(uuid.New(), "A", 5, "", time.Now().UTC()), domain.RatingSummary{Rating: 5, NumReviews: 1}))

			product.Apply(domain.ProductDetails{
				Name:         "Felt Hat",
				Price:        12.5,
				Image:        "https://bucket.s3.us-west-2.amazonaws.com/1-hat.png",
				Category:     "hats",
				Brand:        "Ala-Too",
				CountInStock: 3,
				Description:  "warm",
			}, time.Now().UTC())
			require.NoError(t, b.products.Update(ctx, product))

			stored, err := b.products.FindByID(ctx, product.ID)
			require.NoError(t, err)
			assert.Equal(t, "Felt Hat", stored.Name)
			assert.Equal(t, 12.5, stored.Price)
			assert.Equal(t, 3, stored.CountInStock)
			assert.Len(t, stored.Reviews, 1)

			require.NoError(t, b.products.Delete(ctx, product.ID))
			_, err = b.products.FindByID(ctx, product.ID)
			assert.ErrorIs(t, err, ErrProductNotFound)
			assert.ErrorIs(t, b.products.Delete(ctx, product.ID), ErrProductNotFound)
			assert.ErrorIs(t, b.products.Update(ctx, product), ErrProductNotFound)
		})
	}
}

func TestProductRepository_DeleteCascadesReviews(t *testing.T) {
	if testDB == nil {
		t.Skip("postgres container unavailable")
	}
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	seller := createSeller(t, NewUserRepository(testDB))
	product := createProduct(t, repo, seller.ID, time.Now(), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AddReview(ctx, product.ID,
			domain.NewReview(uuid.New(), fmt.Sprintf("r%d", i), 3, "", time.Now().UTC()), domain.RatingSummary{Rating: 3, NumReviews: i + 1}))
	}

	require.NoError(t, repo.Delete(ctx, product.ID))

	var remaining int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM product_reviews WHERE product_id = $1`, product.ID).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestSQLTransactor_RollsBackOnError(t *testing.T) {
	if testDB == nil {
		t.Skip("postgres container unavailable")
	}
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	seller := createSeller(t, NewUserRepository(testDB))
	tx := NewSQLTransactor(testDB)

	boom := errors.New("boom")
	var product *domain.Product
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		product = domain.NewPlaceholderProduct(seller.ID, time.Now().UTC())
		if err := repo.Create(ctx, product); err != nil {
			return err
		}
		locked, err := repo.FindByIDForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, product.ID, locked.ID)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

// Property: creating and retrieving a product preserves its catalog attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			seller := createSeller(t, b.users)

			properties := gopter.NewProperties(nil)

			properties.Property("stored product matches the created one", prop.ForAll(
				func(name, brand string, price float64, stock int) bool {
					ctx := context.Background()

					product := domain.NewPlaceholderProduct(seller.ID, time.Now().UTC().Truncate(time.Millisecond))
					product.Name = name
					product.Brand = brand
					product.Price = price
					product.CountInStock = stock

					if err := b.products.Create(ctx, product); err != nil {
						t.Logf("FAIL: Failed to create product: %v", err)
						return false
					}

					retrieved, err := b.products.FindByID(ctx, product.ID)
					if err != nil {
						t.Logf("FAIL: Failed to retrieve product: %v", err)
						return false
					}

					if retrieved.Name != name || retrieved.Brand != brand {
						t.Logf("FAIL: text mismatch: %q/%q vs %q/%q", retrieved.Name, retrieved.Brand, name, brand)
						return false
					}
					if retrieved.Price != price || retrieved.CountInStock != stock {
						t.Logf("FAIL: numeric mismatch: %v/%d vs %v/%d", retrieved.Price, retrieved.CountInStock, price, stock)
						return false
					}
					if retrieved.SellerID != seller.ID || !retrieved.CreatedAt.Equal(product.CreatedAt) {
						t.Logf("FAIL: ownership or timestamp mismatch")
						return false
					}

					return true
				},
				gen.AlphaString(),
				gen.AlphaString(),
				gen.Float64Range(0, 100000),
				gen.IntRange(0, 1000),
			))

			properties.TestingRun(t, gopter.ConsoleReporter(false))
		})
	}
}
