package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/application/cart"
)

// CartService exposes the cart registry with catalog lookups.
type CartService struct {
	carts    *cart.Registry
	products *ProductService
	log      zerolog.Logger
}

func NewCartService(carts *cart.Registry, products *ProductService, log zerolog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		log:      log.With().Str("component", "carts").Logger(),
	}
}

func (s *CartService) Create() cart.Cart {
	c := s.carts.Create()
	s.log.Debug().Str("cart_id", c.ID.String()).Msg("cart created")
	return c
}

func (s *CartService) Get(id uuid.UUID) (*cart.Cart, error) {
	return wrapCart(s.carts.Get(id))
}

// List returns every open cart. With held set only held carts are listed.
func (s *CartService) List(held bool) []cart.Cart {
	if held {
		return s.carts.Held()
	}
	return s.carts.List()
}

// AddItem adds qty of a catalog product to the cart.
func (s *CartService) AddItem(ctx context.Context, id uuid.UUID, productID int64, qty int) (*cart.Cart, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return wrapCart(s.carts.AddItem(id, *product, qty))
}

func (s *CartService) SetQuantity(id uuid.UUID, productID int64, qty int) (*cart.Cart, error) {
	return wrapCart(s.carts.SetQuantity(id, productID, qty))
}

func (s *CartService) RemoveItem(id uuid.UUID, productID int64) (*cart.Cart, error) {
	return wrapCart(s.carts.RemoveItem(id, productID))
}

// SetBillDate backdates the cart. A nil date bills under the day of creation.
func (s *CartService) SetBillDate(id uuid.UUID, billDate *time.Time) (*cart.Cart, error) {
	return wrapCart(s.carts.SetBillDate(id, billDate))
}

func (s *CartService) Hold(id uuid.UUID) (*cart.Cart, error) {
	return wrapCart(s.carts.Hold(id))
}

func (s *CartService) Resume(id uuid.UUID) (*cart.Cart, error) {
	return wrapCart(s.carts.Resume(id))
}

func (s *CartService) Discard(id uuid.UUID) error {
	if err := s.carts.Discard(id); err != nil {
		return cartError(err)
	}
	s.log.Debug().Str("cart_id", id.String()).Msg("cart discarded")
	return nil
}

func wrapCart(c cart.Cart, err error) (*cart.Cart, error) {
	if err != nil {
		return nil, cartError(err)
	}
	return &c, nil
}
