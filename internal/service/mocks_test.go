package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// memTx emulates a transaction over the in-memory stores: mutations register
// undo closures, rollback replays them in reverse.
type memTx struct {
	mu        sync.Mutex
	undo      []func()
	committed bool
}

func (t *memTx) addUndo(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

func (t *memTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (t *memTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *memTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *memTx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (t *memTx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

// memDB is an in-memory stand-in for the repositories, honoring the same
// contracts: conditional stock debit, claim-if-unassigned, sentinel errors.
type memDB struct {
	mu         sync.Mutex
	products   map[string]*models.Product
	orders     map[string]*models.Order
	orderItems map[string][]*models.OrderItem
	deliveries map[string]*models.Delivery
	payments   map[string]*models.Payment // keyed by order ID
	users      map[string]*models.User
	carts      map[string]*models.Cart
	cartItems  map[string][]*models.CartItem
	addresses  map[string]*models.Address
	pharmacies map[string]*models.Pharmacy
	favorites  map[string]*models.Favorite
	reviews    map[string]*models.Review
	events     []*models.OutboxMessage
}

func newMemDB() *memDB {
	return &memDB{
		products:   make(map[string]*models.Product),
		orders:     make(map[string]*models.Order),
		orderItems: make(map[string][]*models.OrderItem),
		deliveries: make(map[string]*models.Delivery),
		payments:   make(map[string]*models.Payment),
		users:      make(map[string]*models.User),
		carts:      make(map[string]*models.Cart),
		cartItems:  make(map[string][]*models.CartItem),
		addresses:  make(map[string]*models.Address),
		pharmacies: make(map[string]*models.Pharmacy),
		favorites:  make(map[string]*models.Favorite),
		reviews:    make(map[string]*models.Review),
	}
}

func (m *memDB) BeginTx(ctx context.Context) (repository.Tx, error) {
	return &memTx{}, nil
}

// --- OrderStore ---

func (m *memDB) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *memDB) GetWithItems(ctx context.Context, id string) (*models.Order, error) {
	order, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.orderItems[id] {
		cp := *item
		order.Items = append(order.Items, &cp)
	}
	return order, nil
}

func (m *memDB) ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Order{}
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDB) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) ListByPharmacy(ctx context.Context, pharmacyID string, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Order{}
	for _, o := range m.orders {
		if o.PharmacyID == pharmacyID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Order{}
	for _, o := range m.orders {
		if o.CourierID != nil && *o.CourierID == courierID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) CreateInTx(ctx context.Context, tx repository.Tx, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	cp.Items = nil
	m.orders[order.ID] = &cp
	id := order.ID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.orders, id)
	})
	return nil
}

func (m *memDB) CreateItemInTx(ctx context.Context, tx repository.Tx, item *models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.orderItems[item.OrderID] = append(m.orderItems[item.OrderID], &cp)
	orderID, itemID := item.OrderID, item.ID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		items := m.orderItems[orderID]
		for i, it := range items {
			if it.ID == itemID {
				m.orderItems[orderID] = append(items[:i], items[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *memDB) UpdateInTx(ctx context.Context, tx repository.Tx, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	prev := *old
	cp := *order
	cp.Items = nil
	m.orders[order.ID] = &cp
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.orders[order.ID] = &restored
	})
	return nil
}

func (m *memDB) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID != userID || o.Status != models.OrderStatusCompleted {
			continue
		}
		for _, item := range m.orderItems[o.ID] {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- ProductStore ---

func (m *memDB) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) ReserveStockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) (*models.StockSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Stock < quantity {
		return nil, repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		p.Stock += quantity
	})
	return &models.StockSnapshot{
		ProductID:  p.ID,
		PharmacyID: p.PharmacyID,
		Name:       p.Name,
		Price:      p.Price,
	}, nil
}

func (m *memDB) RestockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += quantity
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		p.Stock -= quantity
	})
	return nil
}

// --- DeliveryStore ---

func (m *memDB) GetDeliveryByID(ctx context.Context, id string) (*models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDB) GetByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if d.OrderID == orderID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDB) ListUnassigned(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Delivery{}
	for _, d := range m.deliveries {
		if d.CourierID != nil {
			continue
		}
		order, ok := m.orders[d.OrderID]
		if !ok {
			continue
		}
		if order.Status == models.OrderStatusReadyForDelivery || order.Status == models.OrderStatusPending {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) ListDeliveriesByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Delivery{}
	for _, d := range m.deliveries {
		if d.CourierID != nil && *d.CourierID == courierID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) ListAllDeliveries(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Delivery{}
	for _, d := range m.deliveries {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDB) CreateDeliveryInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *delivery
	m.deliveries[delivery.ID] = &cp
	id := delivery.ID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.deliveries, id)
	})
	return nil
}

func (m *memDB) CreateDeliveryIfAbsentInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if d.OrderID == delivery.OrderID {
			return nil
		}
	}
	cp := *delivery
	m.deliveries[delivery.ID] = &cp
	id := delivery.ID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.deliveries, id)
	})
	return nil
}

func (m *memDB) GetDeliveryByOrderIDInTx(ctx context.Context, tx repository.Tx, orderID string) (*models.Delivery, error) {
	return m.GetByOrderID(ctx, orderID)
}

func (m *memDB) ClaimInTx(ctx context.Context, tx repository.Tx, deliveryID, courierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[deliveryID]
	if !ok {
		return repository.ErrNotFound
	}
	if d.CourierID != nil {
		return repository.ErrAlreadyClaimed
	}
	now := models.GetCurrentTime()
	d.CourierID = &courierID
	d.Status = models.DeliveryStatusAssigned
	d.AssignedAt = &now
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		d.CourierID = nil
		d.AssignedAt = nil
	})
	return nil
}

func (m *memDB) UpdateDeliveryInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.deliveries[delivery.ID]
	if !ok {
		return repository.ErrNotFound
	}
	prev := *old
	cp := *delivery
	m.deliveries[delivery.ID] = &cp
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.deliveries[delivery.ID] = &restored
	})
	return nil
}

// --- PaymentStore ---

func (m *memDB) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) CreatePaymentInTx(ctx context.Context, tx repository.Tx, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.payments[payment.OrderID] = &cp
	orderID := payment.OrderID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.payments, orderID)
	})
	return nil
}

func (m *memDB) UpdatePaymentStatusInTx(ctx context.Context, tx repository.Tx, paymentID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == paymentID {
			prev := p.Status
			p.Status = status
			tx.(*memTx).addUndo(func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				p.Status = prev
			})
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- UserStore ---

func (m *memDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- OutboxStore ---

func (m *memDB) CreateOutboxInTx(ctx context.Context, tx repository.Tx, message *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, message)
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.events {
			if e == message {
				m.events = append(m.events[:i], m.events[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *memDB) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// --- CartStore ---

func (m *memDB) GetActive(ctx context.Context, userID, pharmacyID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.UserID == userID && c.PharmacyID == pharmacyID && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDB) GetItems(ctx context.Context, cartID string) ([]*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.CartItem{}
	for _, item := range m.cartItems[cartID] {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDB) GetItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.cartItems[cartID] {
		if item.ProductID == productID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDB) Create(ctx context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	cp.Items = nil
	m.carts[cart.ID] = &cp
	return nil
}

func (m *memDB) CreateCartItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.cartItems[item.CartID] = append(m.cartItems[item.CartID], &cp)
	return nil
}

func (m *memDB) UpdateCartItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.cartItems[item.CartID] {
		if existing.ID == item.ID {
			cp := *item
			m.cartItems[item.CartID][i] = &cp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memDB) DeleteItemInTx(ctx context.Context, tx repository.Tx, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cartID, items := range m.cartItems {
		for i, item := range items {
			if item.ID == itemID {
				m.cartItems[cartID] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (m *memDB) ClearItemsInTx(ctx context.Context, tx repository.Tx, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cartItems, cartID)
	return nil
}

func (m *memDB) UpdateTotalsInTx(ctx context.Context, tx repository.Tx, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.carts[cart.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Subtotal = cart.Subtotal
	existing.DeliveryFee = cart.DeliveryFee
	existing.ServiceFee = cart.ServiceFee
	existing.Total = cart.Total
	return nil
}

func (m *memDB) Deactivate(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[cartID]; ok {
		c.IsActive = false
	}
	return nil
}

// --- AddressStore ---

func (m *memDB) GetAddressByID(ctx context.Context, id string) (*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memDB) ListAddressesByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Address{}
	for _, a := range m.addresses {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) GetDefaultAddress(ctx context.Context, userID string) (*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.UserID == userID && a.IsDefault {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDB) CountAddressesByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.addresses {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memDB) CreateAddressInTx(ctx context.Context, tx repository.Tx, address *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *address
	m.addresses[address.ID] = &cp
	id := address.ID
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.addresses, id)
	})
	return nil
}

func (m *memDB) UpdateAddressInTx(ctx context.Context, tx repository.Tx, address *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.addresses[address.ID]
	if !ok {
		return repository.ErrNotFound
	}
	prev := *old
	cp := *address
	m.addresses[address.ID] = &cp
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.addresses[address.ID] = &restored
	})
	return nil
}

func (m *memDB) DeleteAddressInTx(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.addresses[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := *old
	delete(m.addresses, id)
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.addresses[id] = &restored
	})
	return nil
}

func (m *memDB) UnsetAddressDefaultsInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.UserID == userID && a.ID != exceptID && a.IsDefault {
			a.IsDefault = false
			cleared := a
			tx.(*memTx).addUndo(func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				cleared.IsDefault = true
			})
		}
	}
	return nil
}

func (m *memDB) PromoteAnotherAddressInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *models.Address
	for _, a := range m.addresses {
		if a.UserID != userID || a.ID == exceptID {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(oldest.CreatedAt) {
			oldest = a
		}
	}
	if oldest == nil {
		return nil
	}
	oldest.IsDefault = true
	promoted := oldest
	tx.(*memTx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		promoted.IsDefault = false
	})
	return nil
}

// --- PharmacyStore ---

func (m *memDB) GetPharmacyByID(ctx context.Context, id string) (*models.Pharmacy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pharmacies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) ListPharmaciesByCity(ctx context.Context, city string) ([]*models.Pharmacy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Pharmacy{}
	for _, p := range m.pharmacies {
		if p.City == city && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- FavoriteStore ---

func (m *memDB) GetFavoriteByID(ctx context.Context, id string) (*models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.favorites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memDB) ListFavoritesByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Favorite{}
	for _, f := range m.favorites {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) FavoriteExists(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.favorites {
		if f.UserID == userID && f.SubjectRef == subject {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDB) CreateFavorite(ctx context.Context, favorite *models.Favorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *favorite
	m.favorites[favorite.ID] = &cp
	return nil
}

func (m *memDB) DeleteFavorite(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.favorites[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.favorites, id)
	return nil
}

// --- ReviewStore ---

func (m *memDB) GetReviewByID(ctx context.Context, id string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memDB) ListReviewsBySubject(ctx context.Context, subject models.SubjectRef, limit, offset int) ([]*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Review{}
	for _, r := range m.reviews {
		if r.SubjectRef == subject && r.Status == models.ReviewStatusApproved {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDB) ReviewExistsByUser(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.UserID == userID && r.SubjectRef == subject {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDB) CreateReview(ctx context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *review
	m.reviews[review.ID] = &cp
	return nil
}

func (m *memDB) UpdateReview(ctx context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[review.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *review
	m.reviews[review.ID] = &cp
	return nil
}

func (m *memDB) DeleteReview(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *memDB) ReviewRatingSummaryFor(ctx context.Context, subject models.SubjectRef) (*models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &models.RatingSummary{}
	total := 0
	for _, r := range m.reviews {
		if r.SubjectRef == subject && r.Status == models.ReviewStatusApproved {
			summary.ReviewCount++
			total += r.Rating
		}
	}
	if summary.ReviewCount > 0 {
		summary.AverageRating = float64(total) / float64(summary.ReviewCount)
	}
	return summary, nil
}

// Adapters exposing memDB under each store interface, since several
// interfaces reuse the same method names for different entities.

type memProducts struct{ db *memDB }

func (p memProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return p.db.GetProductByID(ctx, id)
}

func (p memProducts) ReserveStockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) (*models.StockSnapshot, error) {
	return p.db.ReserveStockInTx(ctx, tx, productID, quantity)
}

func (p memProducts) RestockInTx(ctx context.Context, tx repository.Tx, productID string, quantity int) error {
	return p.db.RestockInTx(ctx, tx, productID, quantity)
}

type memDeliveries struct{ db *memDB }

func (d memDeliveries) BeginTx(ctx context.Context) (repository.Tx, error) { return d.db.BeginTx(ctx) }

func (d memDeliveries) GetByID(ctx context.Context, id string) (*models.Delivery, error) {
	return d.db.GetDeliveryByID(ctx, id)
}

func (d memDeliveries) GetByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	return d.db.GetByOrderID(ctx, orderID)
}

func (d memDeliveries) ListUnassigned(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	return d.db.ListUnassigned(ctx, limit, offset)
}

func (d memDeliveries) ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Delivery, error) {
	return d.db.ListDeliveriesByCourier(ctx, courierID, limit, offset)
}

func (d memDeliveries) ListAll(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	return d.db.ListAllDeliveries(ctx, limit, offset)
}

func (d memDeliveries) CreateInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	return d.db.CreateDeliveryInTx(ctx, tx, delivery)
}

func (d memDeliveries) CreateIfAbsentInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	return d.db.CreateDeliveryIfAbsentInTx(ctx, tx, delivery)
}

func (d memDeliveries) GetByOrderIDInTx(ctx context.Context, tx repository.Tx, orderID string) (*models.Delivery, error) {
	return d.db.GetDeliveryByOrderIDInTx(ctx, tx, orderID)
}

func (d memDeliveries) ClaimInTx(ctx context.Context, tx repository.Tx, deliveryID, courierID string) error {
	return d.db.ClaimInTx(ctx, tx, deliveryID, courierID)
}

func (d memDeliveries) UpdateInTx(ctx context.Context, tx repository.Tx, delivery *models.Delivery) error {
	return d.db.UpdateDeliveryInTx(ctx, tx, delivery)
}

type memPayments struct{ db *memDB }

func (p memPayments) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return p.db.GetPaymentByOrderID(ctx, orderID)
}

func (p memPayments) CreateInTx(ctx context.Context, tx repository.Tx, payment *models.Payment) error {
	return p.db.CreatePaymentInTx(ctx, tx, payment)
}

func (p memPayments) UpdateStatusInTx(ctx context.Context, tx repository.Tx, paymentID, status string) error {
	return p.db.UpdatePaymentStatusInTx(ctx, tx, paymentID, status)
}

type memUsers struct{ db *memDB }

func (u memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.db.GetUserByID(ctx, id)
}

type memOutbox struct{ db *memDB }

func (o memOutbox) CreateInTx(ctx context.Context, tx repository.Tx, message *models.OutboxMessage) error {
	return o.db.CreateOutboxInTx(ctx, tx, message)
}

type memCarts struct{ db *memDB }

func (c memCarts) BeginTx(ctx context.Context) (repository.Tx, error) { return c.db.BeginTx(ctx) }

func (c memCarts) GetActive(ctx context.Context, userID, pharmacyID string) (*models.Cart, error) {
	return c.db.GetActive(ctx, userID, pharmacyID)
}

func (c memCarts) GetItems(ctx context.Context, cartID string) ([]*models.CartItem, error) {
	return c.db.GetItems(ctx, cartID)
}

func (c memCarts) GetItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	return c.db.GetItemByProduct(ctx, cartID, productID)
}

func (c memCarts) Create(ctx context.Context, cart *models.Cart) error {
	return c.db.Create(ctx, cart)
}

func (c memCarts) CreateItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error {
	return c.db.CreateCartItemInTx(ctx, tx, item)
}

func (c memCarts) UpdateItemInTx(ctx context.Context, tx repository.Tx, item *models.CartItem) error {
	return c.db.UpdateCartItemInTx(ctx, tx, item)
}

func (c memCarts) DeleteItemInTx(ctx context.Context, tx repository.Tx, itemID string) error {
	return c.db.DeleteItemInTx(ctx, tx, itemID)
}

func (c memCarts) ClearItemsInTx(ctx context.Context, tx repository.Tx, cartID string) error {
	return c.db.ClearItemsInTx(ctx, tx, cartID)
}

func (c memCarts) UpdateTotalsInTx(ctx context.Context, tx repository.Tx, cart *models.Cart) error {
	return c.db.UpdateTotalsInTx(ctx, tx, cart)
}

func (c memCarts) Deactivate(ctx context.Context, cartID string) error {
	return c.db.Deactivate(ctx, cartID)
}

type memAddresses struct{ db *memDB }

func (a memAddresses) BeginTx(ctx context.Context) (repository.Tx, error) { return a.db.BeginTx(ctx) }

func (a memAddresses) GetByID(ctx context.Context, id string) (*models.Address, error) {
	return a.db.GetAddressByID(ctx, id)
}

func (a memAddresses) ListByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	return a.db.ListAddressesByUser(ctx, userID)
}

func (a memAddresses) GetDefault(ctx context.Context, userID string) (*models.Address, error) {
	return a.db.GetDefaultAddress(ctx, userID)
}

func (a memAddresses) CountByUser(ctx context.Context, userID string) (int, error) {
	return a.db.CountAddressesByUser(ctx, userID)
}

func (a memAddresses) CreateInTx(ctx context.Context, tx repository.Tx, address *models.Address) error {
	return a.db.CreateAddressInTx(ctx, tx, address)
}

func (a memAddresses) UpdateInTx(ctx context.Context, tx repository.Tx, address *models.Address) error {
	return a.db.UpdateAddressInTx(ctx, tx, address)
}

func (a memAddresses) DeleteInTx(ctx context.Context, tx repository.Tx, id string) error {
	return a.db.DeleteAddressInTx(ctx, tx, id)
}

func (a memAddresses) UnsetDefaultsInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error {
	return a.db.UnsetAddressDefaultsInTx(ctx, tx, userID, exceptID)
}

func (a memAddresses) PromoteAnotherInTx(ctx context.Context, tx repository.Tx, userID, exceptID string) error {
	return a.db.PromoteAnotherAddressInTx(ctx, tx, userID, exceptID)
}

type memPharmacies struct{ db *memDB }

func (p memPharmacies) GetByID(ctx context.Context, id string) (*models.Pharmacy, error) {
	return p.db.GetPharmacyByID(ctx, id)
}

func (p memPharmacies) ListByCity(ctx context.Context, city string) ([]*models.Pharmacy, error) {
	return p.db.ListPharmaciesByCity(ctx, city)
}

type memFavorites struct{ db *memDB }

func (f memFavorites) GetByID(ctx context.Context, id string) (*models.Favorite, error) {
	return f.db.GetFavoriteByID(ctx, id)
}

func (f memFavorites) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Favorite, error) {
	return f.db.ListFavoritesByUser(ctx, userID, limit, offset)
}

func (f memFavorites) Exists(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	return f.db.FavoriteExists(ctx, userID, subject)
}

func (f memFavorites) Create(ctx context.Context, favorite *models.Favorite) error {
	return f.db.CreateFavorite(ctx, favorite)
}

func (f memFavorites) Delete(ctx context.Context, id string) error {
	return f.db.DeleteFavorite(ctx, id)
}

type memReviews struct{ db *memDB }

func (r memReviews) GetByID(ctx context.Context, id string) (*models.Review, error) {
	return r.db.GetReviewByID(ctx, id)
}

func (r memReviews) ListBySubject(ctx context.Context, subject models.SubjectRef, limit, offset int) ([]*models.Review, error) {
	return r.db.ListReviewsBySubject(ctx, subject, limit, offset)
}

func (r memReviews) ExistsByUser(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	return r.db.ReviewExistsByUser(ctx, userID, subject)
}

func (r memReviews) Create(ctx context.Context, review *models.Review) error {
	return r.db.CreateReview(ctx, review)
}

func (r memReviews) Update(ctx context.Context, review *models.Review) error {
	return r.db.UpdateReview(ctx, review)
}

func (r memReviews) Delete(ctx context.Context, id string) error {
	return r.db.DeleteReview(ctx, id)
}

func (r memReviews) RatingSummary(ctx context.Context, subject models.SubjectRef) (*models.RatingSummary, error) {
	return r.db.ReviewRatingSummaryFor(ctx, subject)
}
