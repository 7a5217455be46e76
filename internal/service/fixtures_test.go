package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memState is the shared in-memory store behind the fake repositories.
// A single data mutex guards every map; the fake transaction manager
// serializes whole transactions with its own mutex, which stands in for
// the row locks a real database would take.
type memState struct {
	mu sync.Mutex

	products    map[uuid.UUID]model.Product
	inventories map[pairKey]model.ShopInventory
	movements   []model.StockMovement
	requests    map[uuid.UUID]model.RestockRequest
	requestIDs  []uuid.UUID
	shops       map[uuid.UUID]model.Shop
	members     map[uuid.UUID]map[uuid.UUID]bool
	audits      []model.AuditLog
}

type pairKey struct {
	shopID    uuid.UUID
	productID uuid.UUID
}

func newMemState() *memState {
	return &memState{
		products:    make(map[uuid.UUID]model.Product),
		inventories: make(map[pairKey]model.ShopInventory),
		requests:    make(map[uuid.UUID]model.RestockRequest),
		shops:       make(map[uuid.UUID]model.Shop),
		members:     make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

type memSnapshot struct {
	products    map[uuid.UUID]model.Product
	inventories map[pairKey]model.ShopInventory
	movements   []model.StockMovement
	requests    map[uuid.UUID]model.RestockRequest
	requestIDs  []uuid.UUID
	audits      []model.AuditLog
}

func (s *memState) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		products:    make(map[uuid.UUID]model.Product, len(s.products)),
		inventories: make(map[pairKey]model.ShopInventory, len(s.inventories)),
		requests:    make(map[uuid.UUID]model.RestockRequest, len(s.requests)),
		movements:   append([]model.StockMovement(nil), s.movements...),
		requestIDs:  append([]uuid.UUID(nil), s.requestIDs...),
		audits:      append([]model.AuditLog(nil), s.audits...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.inventories {
		snap.inventories[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memState) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.inventories = snap.inventories
	s.movements = snap.movements
	s.requests = snap.requests
	s.requestIDs = snap.requestIDs
	s.audits = snap.audits
}

// memTxManager serializes transactions and rolls the store back when the
// function returns an error, mirroring the commit/rollback contract.
type memTxManager struct {
	state *memState
	txMu  sync.Mutex
}

func (m *memTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.state.snapshot()
	if err := fn(ctx); err != nil {
		m.state.restore(snap)
		return err
	}
	return nil
}

// --- product repository ---

type memProductRepo struct {
	state *memState
}

func (r *memProductRepo) Create(ctx context.Context, product *model.Product) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	r.state.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, product *model.Product) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	product.UpdatedAt = time.Now()
	r.state.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	delete(r.state.products, id)
	return nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	p, ok := r.state.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memProductRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, p := range r.state.products {
		if p.SKU == sku {
			out := p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []model.Product
	for _, p := range r.state.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	p, ok := r.state.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TotalStock = stock
	r.state.products[id] = p
	return nil
}

func (r *memProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

// --- shop inventory repository ---

type memInventoryRepo struct {
	state     *memState
	createErr error
	updateErr error
}

func (r *memInventoryRepo) Create(ctx context.Context, inv *model.ShopInventory) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	r.state.inventories[pairKey{inv.ShopID, inv.ProductID}] = *inv
	return nil
}

func (r *memInventoryRepo) Update(ctx context.Context, inv *model.ShopInventory) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	inv.UpdatedAt = time.Now()
	r.state.inventories[pairKey{inv.ShopID, inv.ProductID}] = *inv
	return nil
}

func (r *memInventoryRepo) FindByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	inv, ok := r.state.inventories[pairKey{shopID, productID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *memInventoryRepo) FindByPairForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.ShopInventory, error) {
	return r.FindByPair(ctx, shopID, productID)
}

func (r *memInventoryRepo) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int, includeInactive bool) ([]model.ShopInventory, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []model.ShopInventory
	for _, inv := range r.state.inventories {
		if inv.ShopID != shopID {
			continue
		}
		if !inv.IsActive && !includeInactive {
			continue
		}
		out = append(out, inv)
	}
	return out, int64(len(out)), nil
}

// --- stock movement repository ---

type memMovementRepo struct {
	state *memState
}

func (r *memMovementRepo) Create(ctx context.Context, movement *model.StockMovement) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	movement.CreatedAt = time.Now()
	r.state.movements = append(r.state.movements, *movement)
	return nil
}

func (r *memMovementRepo) ListByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.state.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

// --- restock repository ---

type memRestockRepo struct {
	state *memState
}

func (r *memRestockRepo) Create(ctx context.Context, req *model.RestockRequest) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	r.state.requests[req.ID] = *req
	r.state.requestIDs = append(r.state.requestIDs, req.ID)
	return nil
}

func (r *memRestockRepo) Update(ctx context.Context, req *model.RestockRequest) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if _, ok := r.state.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	req.UpdatedAt = time.Now()
	r.state.requests[req.ID] = *req
	return nil
}

func (r *memRestockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	req, ok := r.state.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *memRestockRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memRestockRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.RestockRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memRestockRepo) FindApprovedByPair(ctx context.Context, shopID, productID uuid.UUID) (*model.RestockRequest, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, id := range r.state.requestIDs {
		req := r.state.requests[id]
		if req.ShopID == shopID && req.ProductID == productID && req.Status == model.RestockStatusApproved {
			out := req
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRestockRepo) ActiveExists(ctx context.Context, shopID, productID uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, req := range r.state.requests {
		if excludeID != nil && req.ID == *excludeID {
			continue
		}
		if req.ShopID == shopID && req.ProductID == productID && !model.IsTerminalRestockStatus(req.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRestockRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var count int64
	for _, req := range r.state.requests {
		if req.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (r *memRestockRepo) List(ctx context.Context, filter repository.RestockFilter) ([]model.RestockRequest, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	out := []model.RestockRequest{}
	for _, id := range r.state.requestIDs {
		req := r.state.requests[id]
		if req.Hidden && !filter.IncludeHidden {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if len(filter.ShopIDs) > 0 {
			match := false
			for _, sid := range filter.ShopIDs {
				if sid == req.ShopID {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

// --- shop repository ---

type memShopRepo struct {
	state *memState
}

func (r *memShopRepo) Create(ctx context.Context, shop *model.Shop) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	r.state.shops[shop.ID] = *shop
	return nil
}

func (r *memShopRepo) Update(ctx context.Context, shop *model.Shop) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.shops[shop.ID] = *shop
	return nil
}

func (r *memShopRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	delete(r.state.shops, id)
	return nil
}

func (r *memShopRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	shop, ok := r.state.shops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &shop, nil
}

func (r *memShopRepo) List(ctx context.Context, page, limit int, search string) ([]model.Shop, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []model.Shop
	for _, shop := range r.state.shops {
		out = append(out, shop)
	}
	return out, int64(len(out)), nil
}

func (r *memShopRepo) ListManagedBy(ctx context.Context, userID uuid.UUID) ([]model.Shop, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []model.Shop
	for id, shop := range r.state.shops {
		if shop.ManagerID != nil && *shop.ManagerID == userID {
			out = append(out, shop)
			continue
		}
		if r.state.members[id][userID] {
			out = append(out, shop)
		}
	}
	return out, nil
}

func (r *memShopRepo) IsManagedBy(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	shop, ok := r.state.shops[shopID]
	if !ok {
		return false, nil
	}
	if shop.ManagerID != nil && *shop.ManagerID == userID {
		return true, nil
	}
	return r.state.members[shopID][userID], nil
}

func (r *memShopRepo) AddMember(ctx context.Context, shopID, userID uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.members[shopID] == nil {
		r.state.members[shopID] = make(map[uuid.UUID]bool)
	}
	r.state.members[shopID][userID] = true
	return nil
}

func (r *memShopRepo) RemoveMember(ctx context.Context, shopID, userID uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	delete(r.state.members[shopID], userID)
	return nil
}

// --- audit repository ---

type memAuditRepo struct {
	state *memState
}

func (r *memAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.state.audits = append(r.state.audits, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	out := []model.AuditLog{}
	for _, entry := range r.state.audits {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ShopID != nil && (entry.ShopID == nil || *entry.ShopID != *filter.ShopID) {
			continue
		}
		out = append(out, entry)
	}
	return out, int64(len(out)), nil
}

// --- notifier recorder ---

type sentNotification struct {
	target  string // "user", "role", "shop"
	role    string
	id      uuid.UUID
	payload NotificationPayload
}

type sentBroadcast struct {
	event string
	data  interface{}
}

type notifierRecorder struct {
	mu            sync.Mutex
	notifications []sentNotification
	broadcasts    []sentBroadcast
}

func (n *notifierRecorder) NotifyUser(ctx context.Context, userID uuid.UUID, payload NotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, sentNotification{target: "user", id: userID, payload: payload})
}

func (n *notifierRecorder) NotifyRole(ctx context.Context, role string, payload NotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, sentNotification{target: "role", role: role, payload: payload})
}

func (n *notifierRecorder) NotifyShop(ctx context.Context, shopID uuid.UUID, payload NotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, sentNotification{target: "shop", id: shopID, payload: payload})
}

func (n *notifierRecorder) Broadcast(event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, sentBroadcast{event: event, data: data})
}

func (n *notifierRecorder) countType(notificationType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, sent := range n.notifications {
		if sent.payload.Type == notificationType {
			count++
		}
	}
	return count
}

// --- fixture wiring ---

type fixture struct {
	state       *memState
	productRepo *memProductRepo
	invRepo     *memInventoryRepo
	restockRepo *memRestockRepo
	shopRepo    *memShopRepo
	notifier    *notifierRecorder
	ledger      StockLedger
	restock     RestockService
}

func newFixture() *fixture {
	state := newMemState()
	f := &fixture{
		state:       state,
		productRepo: &memProductRepo{state: state},
		invRepo:     &memInventoryRepo{state: state},
		restockRepo: &memRestockRepo{state: state},
		shopRepo:    &memShopRepo{state: state},
		notifier:    &notifierRecorder{},
	}
	movementRepo := &memMovementRepo{state: state}
	f.ledger = NewStockLedger(f.productRepo, f.invRepo, movementRepo, f.restockRepo, &memAuditRepo{state: state})
	f.restock = NewRestockService(
		f.restockRepo,
		f.productRepo,
		f.shopRepo,
		&memAuditRepo{state: state},
		f.ledger,
		&memTxManager{state: state},
		f.notifier,
	)
	return f
}

func (f *fixture) seedProduct(name string, stock int, minLevel *int) *model.Product {
	product := &model.Product{
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          name,
		TotalStock:    stock,
		MinStockLevel: minLevel,
		IsActive:      true,
	}
	if err := f.productRepo.Create(context.Background(), product); err != nil {
		panic(err)
	}
	return product
}

func (f *fixture) seedShop(name string, managerID *uuid.UUID) *model.Shop {
	shop := &model.Shop{Name: name, ManagerID: managerID, IsActive: true}
	if err := f.shopRepo.Create(context.Background(), shop); err != nil {
		panic(err)
	}
	return shop
}

func (f *fixture) seedRequest(shopID, productID uuid.UUID, amount int, status string) *model.RestockRequest {
	req := &model.RestockRequest{
		ShopID:          shopID,
		ProductID:       productID,
		RequestedAmount: amount,
		RequestType:     model.RequestTypeRestock,
		Status:          status,
	}
	if status == model.RestockStatusApproved {
		now := time.Now()
		approver := uuid.New()
		req.ApprovedBy = &approver
		req.ApprovedAt = &now
	}
	if err := f.restockRepo.Create(context.Background(), req); err != nil {
		panic(err)
	}
	return req
}

func (f *fixture) requestStatus(id uuid.UUID) string {
	req, err := f.restockRepo.FindByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return req.Status
}

func (f *fixture) factoryStock(id uuid.UUID) int {
	p, err := f.productRepo.FindByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return p.TotalStock
}

func (f *fixture) shopStock(shopID, productID uuid.UUID) int {
	inv, err := f.invRepo.FindByPair(context.Background(), shopID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	if err != nil {
		panic(err)
	}
	return inv.CurrentStock
}

func intPtr(v int) *int { return &v }

var adminActor = Actor{UserID: uuid.New(), Role: model.RoleAdmin}

func ownerActorFor(shop *model.Shop) Actor {
	if shop.ManagerID == nil {
		panic("shop has no manager")
	}
	return Actor{UserID: *shop.ManagerID, Role: model.RoleShopOwner}
}
