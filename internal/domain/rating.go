package domain

import "math"

// RatingSummary is a denormalized review aggregate: the mean rating and the
// number of reviews behind it. Products and seller profiles both carry one.
type RatingSummary struct {
	Rating     float64 `json:"rating"`
	NumReviews int     `json:"numReviews"`
}

// Summarize derives the aggregate of a review set. An empty set has rating 0.
func Summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	var sum float64
	for _, r := range reviews {
		sum += float64(r.Rating)
	}
	return RatingSummary{
		Rating:     sum / float64(len(reviews)),
		NumReviews: len(reviews),
	}
}

// Add folds a single new rating into the aggregate.
func (s RatingSummary) Add(rating int) RatingSummary {
	n := s.NumReviews + 1
	return RatingSummary{
		Rating:     finiteOrZero((s.Rating*float64(s.NumReviews) + float64(rating)) / float64(n)),
		NumReviews: n,
	}
}

// Remove takes out a block of count ratings whose total is sum, as happens
// when a product and its reviews leave a seller's catalog. When nothing is
// left, or the stored aggregate was inconsistent, the result is zeroed.
func (s RatingSummary) Remove(sum float64, count int) RatingSummary {
	n := s.NumReviews - count
	if n <= 0 {
		return RatingSummary{}
	}
	return RatingSummary{
		Rating:     finiteOrZero((s.Rating*float64(s.NumReviews) - sum) / float64(n)),
		NumReviews: n,
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
