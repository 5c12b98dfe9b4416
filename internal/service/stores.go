package service

import (
	"context"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// The services depend on these narrow store interfaces rather than the
// concrete repositories so that the state machine logic can be tested
// against in-memory fakes. The repository types satisfy them as-is.

// OrderStore is the persistence surface the order engine needs
type OrderStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetWithItems(ctx context.Context, id string) (*models.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error)
	ListByPharmacy(ctx context.Context, pharmacyID string, limit, offset int) ([]*models.Order, error)
	ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Order, error)
	CreateInTx(ctx context.Context, tx repository.Tx, order *models.Order) error
	CreateItemInTx(ctx context.Context, tx repository.Tx, item *models.OrderItem) error
	UpdateInTx(ctx context.Context, tx repository.Tx, order *models.Order) error
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}

// ProductStore is the stock reservation surface
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	ReserveStockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) (*models.StockSnapshot, error)
	RestockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) error
}

// DeliveryStore is the persistence surface for deliveries
type DeliveryStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetByID(ctx context.Context, id string) (*models.Delivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Delivery, error)
	ListUnassigned(ctx context.Context, limit, offset int) ([]*models.Delivery, error)
	ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Delivery, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Delivery, error)
	CreateInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error
	CreateIfAbsentInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error
	GetByOrderIDInTx(ctx context.Context, tx repository.Tx, orderID string) (*models.Delivery, error)
	ClaimInTx(ctx context.Context, tx repository.Tx, deliveryID, courierID string) error
	UpdateInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error
}

// CartStore is the persistence surface for carts
type CartStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetActive(ctx context.Context, userID, pharmacyID string) (*models.Cart, error)
	GetItems(ctx context.Context, cartID string) ([]*models.CartItem, error)
	GetItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	Create(ctx context.Context, cart *models.Cart) error
	CreateItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error
	UpdateItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error
	DeleteItemInTx(ctx context.Context, tx repository.Tx, itemID string) error
	ClearItemsInTx(ctx context.Context, tx repository.Tx, cartID string) error
	UpdateTotalsInTx(ctx context.Context, tx repository.Tx, cart *models.Cart) error
	Deactivate(ctx context.Context, cartID string) error
}

// PaymentStore is the persistence surface for payments
type PaymentStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	CreateInTx(ctx context.Context, tx repository.Tx, payment *models.Payment) error
	UpdateStatusInTx(ctx context.Context, tx repository.Tx, paymentID, status string) error
}

// UserStore resolves user identities for read projections
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// OutboxStore records domain events inside business transactions
type OutboxStore interface {
	CreateInTx(ctx context.Context, tx repository.Tx, message *models.OutboxMessage) error
}

// AddressStore is the persistence surface for the address book
type AddressStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetByID(ctx context.Context, id string) (*models.Address, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Address, error)
	GetDefault(ctx context.Context, userID string) (*models.Address, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CreateInTx(ctx context.Context, tx repository.Tx, address *models.Address) error
	UpdateInTx(ctx context.Context, tx repository.Tx, address *models.Address) error
	DeleteInTx(ctx context.Context, tx repository.Tx, id string) error
	UnsetDefaultsInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error
	PromoteAnotherInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error
}

// PharmacyStore resolves pharmacies for lookups and city searches
type PharmacyStore interface {
	GetByID(ctx context.Context, id string) (*models.Pharmacy, error)
	ListByCity(ctx context.Context, city string) ([]*models.Pharmacy, error)
}

// FavoriteStore is the persistence surface for favorites
type FavoriteStore interface {
	GetByID(ctx context.Context, id string) (*models.Favorite, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Favorite, error)
	Exists(ctx context.Context, userID string, subject models.SubjectRef) (bool, error)
	Create(ctx context.Context, favorite *models.Favorite) error
	Delete(ctx context.Context, id string) error
}

// ReviewStore is the persistence surface for reviews
type ReviewStore interface {
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListBySubject(ctx context.Context, subject models.SubjectRef, limit, offset int) ([]*models.Review, error)
	ExistsByUser(ctx context.Context, userID string, subject models.SubjectRef) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	RatingSummary(ctx context.Context, subject models.SubjectRef) (*models.RatingSummary, error)
}
