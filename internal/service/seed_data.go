package service

import "lookkg/internal/domain"

var seedProducts = []domain.ProductDetails{
	{
		Name:         "Felt Kalpak",
		Category:     "Hats",
		Image:        "/images/p1.jpg",
		Price:        35,
		CountInStock: 10,
		Brand:        "Ala-Too",
		Description:  "traditional white felt hat",
	},
	{
		Name:         "Shyrdak Rug",
		Category:     "Home",
		Image:        "/images/p2.jpg",
		Price:        240,
		CountInStock: 3,
		Brand:        "Issyk-Kul Crafts",
		Description:  "hand stitched felt rug",
	},
	{
		Name:         "Wool Slippers",
		Category:     "Shoes",
		Image:        "/images/p3.jpg",
		Price:        18,
		CountInStock: 25,
		Brand:        "Naryn Wool",
		Description:  "warm felted slippers",
	},
	{
		Name:         "Leather Kamcha",
		Category:     "Accessories",
		Image:        "/images/p4.jpg",
		Price:        42,
		CountInStock: 0,
		Brand:        "Talas Leather",
		Description:  "braided leather riding whip",
	},
	{
		Name:         "Silk Scarf",
		Category:     "Accessories",
		Image:        "/images/p5.jpg",
		Price:        27,
		CountInStock: 12,
		Brand:        "Osh Bazaar",
		Description:  "light silk scarf with ikat pattern",
	},
	{
		Name:         "Felt Vest",
		Category:     "Clothing",
		Image:        "/images/p6.jpg",
		Price:        60,
		CountInStock: 7,
		Brand:        "Ala-Too",
		Description:  "embroidered felt vest",
	},
}

type seedUser struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
	IsSeller bool
	Seller   domain.SellerProfile
}

var seedUsers = []seedUser{
	{
		Name:     "Admin",
		Email:    "admin@look.kg",
		Password: "1234",
		IsAdmin:  true,
		IsSeller: true,
		Seller: domain.SellerProfile{
			Name:        "Look.kg",
			Logo:        "/images/logo1.png",
			Description: "marketplace house store",
			PayMethod:   domain.PayMethods{MBank: "0555000000"},
		},
	},
	{
		Name:     "Aizada",
		Email:    "aizada@look.kg",
		Password: "1234",
		IsSeller: true,
		Seller: domain.SellerProfile{
			Name:        "Aizada Crafts",
			Logo:        "/images/logo2.png",
			Description: "felt and wool goods from Naryn",
			Instagram:   domain.Instagram{Username: "aizada.crafts"},
			PayMethod:   domain.PayMethods{Elsom: "0700000000", OMoney: "0700000000"},
		},
	},
	{
		Name:     "Bakyt",
		Email:    "bakyt@look.kg",
		Password: "1234",
	},
}
