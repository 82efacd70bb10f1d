// Package pricing estimates the coupons applicable to a product price
// and computes the resulting final price.
package pricing

import "math"

type CouponType string

const (
	CouponSeller   CouponType = "seller"
	CouponPlatform CouponType = "platform"
	CouponSelect   CouponType = "select"
	CouponCoins    CouponType = "coins"
)

type Coupon struct {
	Type   CouponType
	Amount float64
}

// Quote is the computed pricing breakdown for one product.
type Quote struct {
	OriginalPrice  float64
	FinalPrice     float64
	Savings        float64
	SavingsPercent float64
	Coupons        []Coupon
}

// AvailableCoupons estimates which coupon tiers apply at price.
// Thresholds mirror the provider's usual promotion rules.
func AvailableCoupons(price float64) []Coupon {
	var coupons []Coupon
	if price > 50 {
		coupons = append(coupons, Coupon{Type: CouponSeller, Amount: math.Min(price*0.10, 20)})
	}
	if price > 100 {
		coupons = append(coupons, Coupon{Type: CouponPlatform, Amount: math.Min(price*0.05, 15)})
	}
	coupons = append(coupons, Coupon{Type: CouponSelect, Amount: 5})
	coupons = append(coupons, Coupon{Type: CouponCoins, Amount: math.Min(price*0.02, 10)})
	return coupons
}

// QuoteFor applies every available coupon to price. The final price
// never goes below zero.
func QuoteFor(price float64) Quote {
	coupons := AvailableCoupons(price)
	total := 0.0
	for _, c := range coupons {
		total += c.Amount
	}
	final := math.Max(price-total, 0)
	savings := price - final
	pct := 0.0
	if price > 0 {
		pct = savings / price * 100
	}
	return Quote{
		OriginalPrice:  price,
		FinalPrice:     final,
		Savings:        savings,
		SavingsPercent: pct,
		Coupons:        coupons,
	}
}
