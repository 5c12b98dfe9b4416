package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/policy"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

const (
	cartDeliveryFee = 2.50
	cartServiceFee  = 1.00
	cartLifetime    = 24 * time.Hour
)

// OrderCreator is the slice of the order engine the cart needs at checkout
type OrderCreator interface {
	CreateOrder(ctx context.Context, actor models.Actor, input CreateOrderInput) (*models.Order, error)
}

// CartService keeps one active basket per client and pharmacy. Line totals
// and cart totals are always recomputed server-side from the price captured
// when the product was added; client-sent amounts are never trusted.
type CartService struct {
	carts    CartStore
	products ProductStore
	orders   OrderCreator
	logger   logger.Logger
}

// NewCartService creates a new CartService
func NewCartService(carts CartStore, products ProductStore, orders OrderCreator, logger logger.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		orders:   orders,
		logger:   logger,
	}
}

// GetCart retrieves the actor's active cart at a pharmacy with its items and
// recomputed totals. When there is none, an empty unsaved cart is returned so
// the caller always gets a well-formed basket.
func (s *CartService) GetCart(ctx context.Context, actor models.Actor, pharmacyID string) (*models.Cart, error) {
	if !policy.Allows(actor.Role, policy.ResourceCart, policy.CapView) {
		return nil, apperrors.NewForbiddenError("role has no cart")
	}

	cart, err := s.carts.GetActive(ctx, actor.UserID, pharmacyID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			empty := models.NewCart(actor.UserID, pharmacyID)
			empty.Items = []*models.CartItem{}
			return empty, nil
		}
		return nil, apperrors.NewInternalError("failed to get cart")
	}

	items, err := s.carts.GetItems(ctx, cart.ID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cart items")
	}

	cart.Items = items
	applyFees(cart)
	return cart, nil
}

// AddItem puts a product in the actor's active cart for that product's
// pharmacy, incrementing the line if it is already there
func (s *CartService) AddItem(ctx context.Context, actor models.Actor, productID string, quantity int) (*models.Cart, error) {
	if !policy.Allows(actor.Role, policy.ResourceCart, policy.CapUpdate) {
		return nil, apperrors.NewForbiddenError("role cannot modify carts")
	}

	if quantity < 1 {
		return nil, apperrors.NewValidationError("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, productID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("product not found")
		}
		return nil, apperrors.NewInternalError("failed to get product")
	}

	cart, err := s.activeCart(ctx, actor, product.PharmacyID)

	if err != nil {
		return nil, err
	}

	items, err := s.carts.GetItems(ctx, cart.ID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cart items")
	}

	var line *models.CartItem
	for _, item := range items {
		if item.ProductID == productID {
			line = item
			break
		}
	}

	newQuantity := quantity
	if line != nil {
		newQuantity += line.Quantity
	}

	// Advisory check against the current stock level. The hard guarantee
	// happens at checkout when stock is actually reserved.
	if product.Stock < newQuantity {
		return nil, apperrors.NewOutOfStockError(productID, newQuantity)
	}

	tx, err := s.carts.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if line != nil {
		line.Quantity = newQuantity
		line.Recalc()
		if err = s.carts.UpdateItemInTx(ctx, tx, line); err != nil {
			return nil, apperrors.NewInternalError("failed to update cart item")
		}
	} else {
		line = models.NewCartItem(cart.ID, productID, quantity, product.Price)
		items = append(items, line)
		if err = s.carts.CreateItemInTx(ctx, tx, line); err != nil {
			return nil, apperrors.NewInternalError("failed to add cart item")
		}
	}

	cart.Items = items
	applyFees(cart)

	if err = s.carts.UpdateTotalsInTx(ctx, tx, cart); err != nil {
		return nil, apperrors.NewInternalError("failed to update cart totals")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit cart update")
	}

	s.logger.Info("Cart item added", "cartID", cart.ID, "productID", productID, "quantity", newQuantity)
	return cart, nil
}

// UpdateItemQuantity sets the quantity of a cart line
func (s *CartService) UpdateItemQuantity(ctx context.Context, actor models.Actor, pharmacyID, itemID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.NewValidationError("quantity must be at least 1")
	}

	cart, items, line, err := s.findLine(ctx, actor, pharmacyID, itemID)

	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, line.ProductID)

	if err == nil && product.Stock < quantity {
		return nil, apperrors.NewOutOfStockError(line.ProductID, quantity)
	}

	tx, err := s.carts.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	line.Quantity = quantity
	line.Recalc()

	if err = s.carts.UpdateItemInTx(ctx, tx, line); err != nil {
		return nil, apperrors.NewInternalError("failed to update cart item")
	}

	cart.Items = items
	applyFees(cart)

	if err = s.carts.UpdateTotalsInTx(ctx, tx, cart); err != nil {
		return nil, apperrors.NewInternalError("failed to update cart totals")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit cart update")
	}

	return cart, nil
}

// RemoveItem deletes a cart line
func (s *CartService) RemoveItem(ctx context.Context, actor models.Actor, pharmacyID, itemID string) (*models.Cart, error) {
	cart, items, line, err := s.findLine(ctx, actor, pharmacyID, itemID)

	if err != nil {
		return nil, err
	}

	tx, err := s.carts.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.carts.DeleteItemInTx(ctx, tx, line.ID); err != nil {
		return nil, apperrors.NewInternalError("failed to remove cart item")
	}

	remaining := make([]*models.CartItem, 0, len(items)-1)
	for _, item := range items {
		if item.ID != line.ID {
			remaining = append(remaining, item)
		}
	}

	cart.Items = remaining
	applyFees(cart)

	if err = s.carts.UpdateTotalsInTx(ctx, tx, cart); err != nil {
		return nil, apperrors.NewInternalError("failed to update cart totals")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit cart update")
	}

	return cart, nil
}

// Clear empties the actor's active cart at a pharmacy
func (s *CartService) Clear(ctx context.Context, actor models.Actor, pharmacyID string) error {
	if !policy.Allows(actor.Role, policy.ResourceCart, policy.CapDelete) {
		return apperrors.NewForbiddenError("role cannot modify carts")
	}

	cart, err := s.carts.GetActive(ctx, actor.UserID, pharmacyID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.NewInternalError("failed to get cart")
	}

	tx, err := s.carts.BeginTx(ctx)

	if err != nil {
		return apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.carts.ClearItemsInTx(ctx, tx, cart.ID); err != nil {
		return apperrors.NewInternalError("failed to clear cart")
	}

	cart.Items = nil
	applyFees(cart)

	if err = s.carts.UpdateTotalsInTx(ctx, tx, cart); err != nil {
		return apperrors.NewInternalError("failed to update cart totals")
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit cart update")
	}

	return nil
}

// Checkout turns the active cart into an order. The order engine reserves
// stock with its own all-or-nothing transaction; only once the order exists
// is the cart emptied and retired.
func (s *CartService) Checkout(ctx context.Context, actor models.Actor, pharmacyID string, shipping models.ShippingInfo) (*models.Order, error) {
	cart, err := s.carts.GetActive(ctx, actor.UserID, pharmacyID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("no active cart to check out")
		}
		return nil, apperrors.NewInternalError("failed to get cart")
	}

	if cart.IsExpired() {
		return nil, apperrors.NewConflictError("cart has expired", "expired")
	}

	items, err := s.carts.GetItems(ctx, cart.ID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cart items")
	}

	if len(items) == 0 {
		return nil, apperrors.NewValidationError("cart is empty")
	}

	input := CreateOrderInput{Shipping: shipping}
	for _, item := range items {
		input.Items = append(input.Items, OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := s.orders.CreateOrder(ctx, actor, input)

	if err != nil {
		return nil, err
	}

	if err := s.retireCart(ctx, cart.ID); err != nil {
		// The order exists; a stale cart is an annoyance, not a loss.
		s.logger.Warn("Failed to retire cart after checkout", "cartID", cart.ID, "orderID", order.ID, "error", err)
	}

	s.logger.Info("Cart checked out", "cartID", cart.ID, "orderID", order.ID)
	return order, nil
}

func (s *CartService) retireCart(ctx context.Context, cartID string) error {
	tx, err := s.carts.BeginTx(ctx)

	if err != nil {
		return err
	}

	if err := s.carts.ClearItemsInTx(ctx, tx, cartID); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return s.carts.Deactivate(ctx, cartID)
}

// activeCart returns the actor's active cart for the pharmacy, replacing an
// expired one and creating a fresh one when needed
func (s *CartService) activeCart(ctx context.Context, actor models.Actor, pharmacyID string) (*models.Cart, error) {
	cart, err := s.carts.GetActive(ctx, actor.UserID, pharmacyID)

	if err == nil {
		if !cart.IsExpired() {
			return cart, nil
		}
		if err := s.carts.Deactivate(ctx, cart.ID); err != nil {
			return nil, apperrors.NewInternalError("failed to retire expired cart")
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError("failed to get cart")
	}

	cart = models.NewCart(actor.UserID, pharmacyID)
	expiry := models.GetCurrentTime().Add(cartLifetime)
	cart.ExpiresAt = &expiry

	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, apperrors.NewInternalError("failed to create cart")
	}

	return cart, nil
}

// findLine loads the active cart and locates one of its lines by ID
func (s *CartService) findLine(ctx context.Context, actor models.Actor, pharmacyID, itemID string) (*models.Cart, []*models.CartItem, *models.CartItem, error) {
	if !policy.Allows(actor.Role, policy.ResourceCart, policy.CapUpdate) {
		return nil, nil, nil, apperrors.NewForbiddenError("role cannot modify carts")
	}

	cart, err := s.carts.GetActive(ctx, actor.UserID, pharmacyID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, apperrors.NewNotFoundError("no active cart")
		}
		return nil, nil, nil, apperrors.NewInternalError("failed to get cart")
	}

	items, err := s.carts.GetItems(ctx, cart.ID)

	if err != nil {
		return nil, nil, nil, apperrors.NewInternalError("failed to get cart items")
	}

	for _, item := range items {
		if item.ID == itemID {
			return cart, items, item, nil
		}
	}

	return nil, nil, nil, apperrors.NewNotFoundError(fmt.Sprintf("cart item %s not found", itemID))
}

func applyFees(cart *models.Cart) {
	if len(cart.Items) == 0 {
		cart.DeliveryFee = 0
		cart.ServiceFee = 0
	} else {
		cart.DeliveryFee = cartDeliveryFee
		cart.ServiceFee = cartServiceFee
	}
	cart.RecalcTotals()
}
