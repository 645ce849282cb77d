package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholder values given to a freshly created product until the seller fills it in.
const (
	PlaceholderImage       = "/images/p1.jpg"
	PlaceholderCategory    = "sample category"
	PlaceholderBrand       = "sample brand"
	PlaceholderDescription = "sample description"
)

// Product represents a catalog entry owned by a seller
type Product struct {
	ID           uuid.UUID  `json:"_id"`
	Name         string     `json:"name"`
	Image        string     `json:"image"`
	Price        float64    `json:"price"`
	Category     string     `json:"category"`
	Brand        string     `json:"brand"`
	CountInStock int        `json:"countInStock"`
	Rating       float64    `json:"rating"`
	NumReviews   int        `json:"numReviews"`
	Description  string     `json:"description"`
	SellerID     uuid.UUID  `json:"-"`
	Seller       *SellerRef `json:"seller"`
	Reviews      []Review   `json:"reviews"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// SellerRef is the serialized form of a product's seller reference. Seller is
// only set when the owning user has been looked up.
type SellerRef struct {
	ID     uuid.UUID   `json:"_id"`
	Seller *SellerCard `json:"seller,omitempty"`
}

// SellerCard is the subset of a seller profile shown next to a product.
// The optional fields are filled only for the product detail view.
type SellerCard struct {
	Name       string      `json:"name"`
	Logo       string      `json:"logo"`
	Rating     *float64    `json:"rating,omitempty"`
	NumReviews *int        `json:"numReviews,omitempty"`
	PayMethod  *PayMethods `json:"payMethod,omitempty"`
}

// ProductDetails holds the mutable catalog fields of a product
type ProductDetails struct {
	Name         string
	Price        float64
	Image        string
	Category     string
	Brand        string
	CountInStock int
	Description  string
}

// NewPlaceholderProduct builds the product a seller gets from a create call.
func NewPlaceholderProduct(sellerID uuid.UUID, now time.Time) *Product {
	return &Product{
		ID:           uuid.New(),
		Name:         fmt.Sprintf("sample name %d", now.UnixMilli()),
		Image:        PlaceholderImage,
		Price:        0,
		Category:     PlaceholderCategory,
		Brand:        PlaceholderBrand,
		CountInStock: 0,
		Rating:       0,
		NumReviews:   0,
		Description:  PlaceholderDescription,
		SellerID:     sellerID,
		Seller:       &SellerRef{ID: sellerID},
		Reviews:      []Review{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Apply overwrites the catalog fields with d.
func (p *Product) Apply(d ProductDetails, now time.Time) {
	p.Name = d.Name
	p.Price = d.Price
	p.Image = d.Image
	p.Category = d.Category
	p.Brand = d.Brand
	p.CountInStock = d.CountInStock
	p.Description = d.Description
	p.UpdatedAt = now
}

// ReviewSummary returns the product's own aggregate derived from its reviews.
func (p *Product) ReviewSummary() RatingSummary {
	return Summarize(p.Reviews)
}

// ReviewRatingSum is the sum of every review rating on the product.
func (p *Product) ReviewRatingSum() float64 {
	var sum float64
	for _, r := range p.Reviews {
		sum += float64(r.Rating)
	}
	return sum
}

// AddReview appends r and re-derives Rating and NumReviews.
func (p *Product) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
	s := Summarize(p.Reviews)
	p.Rating = s.Rating
	p.NumReviews = s.NumReviews
}

// HasReviewFrom reports whether the reviewer already left a review. Reviews
// written before reviewer ids were recorded are matched by display name.
func (p *Product) HasReviewFrom(reviewerID uuid.UUID, name string) bool {
	for _, r := range p.Reviews {
		if r.ReviewerID != uuid.Nil {
			if r.ReviewerID == reviewerID {
				return true
			}
			continue
		}
		if r.Name == name {
			return true
		}
	}
	return false
}

// HostedImage reports whether the image lives on external object storage
// rather than being a bundled static asset.
func (p *Product) HostedImage() bool {
	return strings.HasPrefix(p.Image, "https://")
}

// SetSellerID records the owning seller on both the id and the serialized reference.
func (p *Product) SetSellerID(id uuid.UUID) {
	p.SellerID = id
	if p.Seller == nil || p.Seller.ID != id {
		p.Seller = &SellerRef{ID: id}
	}
}
