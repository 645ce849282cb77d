package repository

import (
	"time"

	"lookkg/internal/domain"

	"github.com/google/uuid"
)

// Collection names used by the MongoDB backend
const (
	ProductsCollection = "products"
	UsersCollection    = "users"
)

type reviewDocument struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user,omitempty"`
	Name      string    `bson:"name"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type productDocument struct {
	ID           string           `bson:"_id"`
	Name         string           `bson:"name"`
	Image        string           `bson:"image"`
	Price        float64          `bson:"price"`
	Category     string           `bson:"category"`
	Brand        string           `bson:"brand"`
	CountInStock int              `bson:"countInStock"`
	Rating       float64          `bson:"rating"`
	NumReviews   int              `bson:"numReviews"`
	Description  string           `bson:"description"`
	Seller       string           `bson:"seller"`
	Reviews      []reviewDocument `bson:"reviews"`
	CreatedAt    time.Time        `bson:"createdAt"`
	UpdatedAt    time.Time        `bson:"updatedAt"`
}

type payMethodDocument struct {
	VisaCard  string `bson:"visaCard"`
	Elsom     string `bson:"elsom"`
	OMoney    string `bson:"Omoney"`
	BalanceKg string `bson:"balanceKg"`
	MBank     string `bson:"mBank"`
}

type sellerDocument struct {
	Name        string `bson:"name"`
	Logo        string `bson:"logo"`
	NotLogo     []byte `bson:"notLogo,omitempty"`
	Description string `bson:"description"`
	Instagram   struct {
		Username string `bson:"username"`
	} `bson:"instagram"`
	PayMethod  payMethodDocument `bson:"payMethod"`
	Rating     float64           `bson:"rating"`
	NumReviews int               `bson:"numReviews"`
}

type userDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	Email     string         `bson:"email"`
	Password  string         `bson:"password"`
	IsAdmin   bool           `bson:"isAdmin"`
	IsSeller  bool           `bson:"isSeller"`
	Seller    sellerDocument `bson:"seller"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

func newReviewDocument(r domain.Review) reviewDocument {
	doc := reviewDocument{
		ID:        r.ID.String(),
		Name:      r.Name,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ReviewerID != uuid.Nil {
		doc.User = r.ReviewerID.String()
	}
	return doc
}

func (d reviewDocument) toDomain() domain.Review {
	return domain.Review{
		ID:         parseID(d.ID),
		ReviewerID: parseID(d.User),
		Name:       d.Name,
		Rating:     d.Rating,
		Comment:    d.Comment,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func newProductDocument(p *domain.Product) productDocument {
	doc := productDocument{
		ID:           p.ID.String(),
		Name:         p.Name,
		Image:        p.Image,
		Price:        p.Price,
		Category:     p.Category,
		Brand:        p.Brand,
		CountInStock: p.CountInStock,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Description:  p.Description,
		Seller:       p.SellerID.String(),
		Reviews:      make([]reviewDocument, 0, len(p.Reviews)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	for _, r := range p.Reviews {
		doc.Reviews = append(doc.Reviews, newReviewDocument(r))
	}
	return doc
}

func (d productDocument) toDomain() *domain.Product {
	p := &domain.Product{
		ID:           parseID(d.ID),
		Name:         d.Name,
		Image:        d.Image,
		Price:        d.Price,
		Category:     d.Category,
		Brand:        d.Brand,
		CountInStock: d.CountInStock,
		Rating:       d.Rating,
		NumReviews:   d.NumReviews,
		Description:  d.Description,
		Reviews:      make([]domain.Review, 0, len(d.Reviews)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	p.SetSellerID(parseID(d.Seller))
	for _, r := range d.Reviews {
		p.Reviews = append(p.Reviews, r.toDomain())
	}
	return p
}

func newUserDocument(u *domain.User) userDocument {
	doc := userDocument{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		IsAdmin:   u.IsAdmin,
		IsSeller:  u.IsSeller,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	doc.Seller.Name = u.Seller.Name
	doc.Seller.Logo = u.Seller.Logo
	doc.Seller.NotLogo = u.Seller.LogoData
	doc.Seller.Description = u.Seller.Description
	doc.Seller.Instagram.Username = u.Seller.Instagram.Username
	doc.Seller.PayMethod = payMethodDocument(u.Seller.PayMethod)
	doc.Seller.Rating = u.Seller.Rating
	doc.Seller.NumReviews = u.Seller.NumReviews
	return doc
}

func (d userDocument) toDomain() *domain.User {
	u := &domain.User{
		ID:           parseID(d.ID),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsAdmin:      d.IsAdmin,
		IsSeller:     d.IsSeller,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	u.Seller.Name = d.Seller.Name
	u.Seller.Logo = d.Seller.Logo
	u.Seller.LogoData = d.Seller.NotLogo
	u.Seller.Description = d.Seller.Description
	u.Seller.Instagram.Username = d.Seller.Instagram.Username
	u.Seller.PayMethod = domain.PayMethods(d.Seller.PayMethod)
	u.Seller.Rating = d.Seller.Rating
	u.Seller.NumReviews = d.Seller.NumReviews
	return u
}

// parseID reads a stored string id; anything unparseable becomes uuid.Nil
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
