// Package cart tracks products users want price-watched.
package cart

import (
	"context"
	"fmt"
	"math"

	"dealbot/internal/affiliate"
	"dealbot/internal/i18n"
	"dealbot/internal/storage"
	"dealbot/pkg/logx"
)

// priceEpsilon filters out float noise when comparing stored and
// freshly fetched prices.
const priceEpsilon = 0.01

type Service struct {
	store storage.Store
	aff   *affiliate.Service
	log   logx.Logger
}

func New(store storage.Store, aff *affiliate.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, aff: aff, log: log}
}

// AddProduct looks the product up and stores it with its current price
// as the tracking baseline.
func (s *Service) AddProduct(ctx context.Context, chatID int64, productURL string) (affiliate.Product, error) {
	product, err := s.aff.GetProductDetails(ctx, productURL)
	if err != nil {
		return affiliate.Product{}, fmt.Errorf("product lookup: %w", err)
	}
	if _, err := s.store.AddCartItem(ctx, chatID, productURL, product.Title, product.Price); err != nil {
		return affiliate.Product{}, fmt.Errorf("store cart item: %w", err)
	}
	s.log.Info("product added to cart", logx.Int64("chat_id", chatID), logx.String("title", product.Title))
	return product, nil
}

func (s *Service) Items(ctx context.Context, chatID int64) ([]storage.CartItem, error) {
	return s.store.ListCartItems(ctx, chatID)
}

// PriceChange describes one detected price move.
type PriceChange struct {
	ItemID   int64
	Title    string
	OldPrice float64
	NewPrice float64
	Delta    float64
	Percent  float64
}

// CheckPriceChanges re-fetches every cart item's price for one user and
// records moves larger than the epsilon. A single item's lookup failure
// is logged and skipped; it never aborts the rest of the cart.
func (s *Service) CheckPriceChanges(ctx context.Context, chatID int64) ([]PriceChange, error) {
	items, err := s.store.ListCartItems(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var changes []PriceChange
	for _, item := range items {
		product, err := s.aff.GetProductDetails(ctx, item.ProductURL)
		if err != nil {
			s.log.Warn("price check failed for item", logx.Int64("item", item.ID), logx.Err(err))
			continue
		}
		old := item.CurrentPrice
		if math.Abs(product.Price-old) <= priceEpsilon {
			continue
		}

		delta := product.Price - old
		pct := 0.0
		if old > 0 {
			pct = delta / old * 100
		}
		changes = append(changes, PriceChange{
			ItemID:   item.ID,
			Title:    item.ProductTitle,
			OldPrice: old,
			NewPrice: product.Price,
			Delta:    delta,
			Percent:  pct,
		})
		if err := s.store.UpdateCartPrice(ctx, item.ID, product.Price); err != nil {
			s.log.Warn("price update failed", logx.Int64("item", item.ID), logx.Err(err))
		}
	}
	return changes, nil
}

// FormatPriceChange renders one price move for the given language.
func FormatPriceChange(c PriceChange, lang string) string {
	key := "price_rise"
	if c.Delta < 0 {
		key = "price_drop"
	}
	return i18n.T(lang, key, map[string]string{
		"title": c.Title,
		"old":   fmt.Sprintf("%.2f", c.OldPrice),
		"new":   fmt.Sprintf("%.2f", c.NewPrice),
		"pct":   fmt.Sprintf("%.1f", math.Abs(c.Percent)),
	})
}
