package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. Sellers carry their storefront in Seller.
type User struct {
	ID           uuid.UUID     `json:"_id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	IsAdmin      bool          `json:"isAdmin"`
	IsSeller     bool          `json:"isSeller"`
	Seller       SellerProfile `json:"seller"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// SellerProfile is the storefront identity and reputation embedded in a user
type SellerProfile struct {
	Name        string     `json:"name"`
	Logo        string     `json:"logo"`
	LogoData    []byte     `json:"notLogo,omitempty"`
	Description string     `json:"description"`
	Instagram   Instagram  `json:"instagram"`
	PayMethod   PayMethods `json:"payMethod"`
	Rating      float64    `json:"rating"`
	NumReviews  int        `json:"numReviews"`
}

type Instagram struct {
	Username string `json:"username"`
}

// PayMethods lists the account identifiers a seller accepts payment on.
type PayMethods struct {
	VisaCard  string `json:"visaCard"`
	Elsom     string `json:"elsom"`
	OMoney    string `json:"Omoney"`
	BalanceKg string `json:"balanceKg"`
	MBank     string `json:"mBank"`
}

// SellerSummary returns the seller's aggregate rating.
func (u *User) SellerSummary() RatingSummary {
	return RatingSummary{Rating: u.Seller.Rating, NumReviews: u.Seller.NumReviews}
}

// SetSellerSummary stores a recomputed aggregate on the seller profile.
func (u *User) SetSellerSummary(s RatingSummary) {
	u.Seller.Rating = s.Rating
	u.Seller.NumReviews = s.NumReviews
}

// ListingCard is the seller card shown on catalog listings.
func (u *User) ListingCard() *SellerCard {
	return &SellerCard{Name: u.Seller.Name, Logo: u.Seller.Logo}
}

// DetailCard is the seller card shown on a product page, including the
// reputation and payment details needed at checkout.
func (u *User) DetailCard() *SellerCard {
	rating := u.Seller.Rating
	numReviews := u.Seller.NumReviews
	payMethod := u.Seller.PayMethod
	return &SellerCard{
		Name:       u.Seller.Name,
		Logo:       u.Seller.Logo,
		Rating:     &rating,
		NumReviews: &numReviews,
		PayMethod:  &payMethod,
	}
}
