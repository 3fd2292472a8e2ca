package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

type customerRepository struct {
	mu        sync.RWMutex
	customers map[types.CustomerID]*model.Customer
}

var _ interfaces.CustomerRepository = &customerRepository{}

func newCustomerRepository() *customerRepository {
	return &customerRepository{
		customers: make(map[types.CustomerID]*model.Customer),
	}
}

// copyCustomer creates a deep copy of a customer
func copyCustomer(c *model.Customer) *model.Customer {
	copied := *c
	if c.Webhook != nil {
		hook := *c.Webhook
		copied.Webhook = &hook
	}
	return &copied
}

func (r *customerRepository) Get(ctx context.Context, id types.CustomerID) (*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	return copyCustomer(c), nil
}

func (r *customerRepository) GetByRoomID(ctx context.Context, roomID string) (*model.Customer, error) {
	if roomID == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.customers {
		if c.IsActive() && c.RoomID == roomID {
			return copyCustomer(c), nil
		}
	}
	return nil, nil
}

func (r *customerRepository) Reserve(ctx context.Context, id types.CustomerID, teamID, owner string, until time.Time) (*model.Customer, bool, error) {
	if owner == "" {
		return nil, false, goerr.New("reservation owner is required", goerr.V("customer_id", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.customers[id]
	if ok {
		if existing.IsActive() {
			return copyCustomer(existing), false, nil
		}
		if existing.ReservedBy != owner && !existing.ReservationExpired(now) {
			return copyCustomer(existing), false, nil
		}
	}

	reserved := &model.Customer{
		ID:            id,
		TeamID:        teamID,
		Status:        types.CustomerStatusReserved,
		ReservedBy:    owner,
		ReservedUntil: until,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ok {
		reserved.CreatedAt = existing.CreatedAt
	}

	r.customers[id] = reserved
	return copyCustomer(reserved), true, nil
}

func (r *customerRepository) Activate(ctx context.Context, owner string, c *model.Customer) error {
	if c == nil || !c.IsActive() {
		return goerr.New("customer must be active to be stored")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.customers[c.ID]
	if !ok || existing.Status != types.CustomerStatusReserved || existing.ReservedBy != owner {
		return goerr.Wrap(interfaces.ErrReservationLost, "failed to activate customer",
			goerr.V("customer_id", c.ID),
			goerr.V("owner", owner),
		)
	}

	activated := copyCustomer(c)
	activated.CreatedAt = existing.CreatedAt
	activated.UpdatedAt = time.Now().UTC()
	r.customers[c.ID] = activated
	return nil
}

func (r *customerRepository) Release(ctx context.Context, id types.CustomerID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.customers[id]
	if !ok || existing.Status != types.CustomerStatusReserved || existing.ReservedBy != owner {
		return nil
	}
	delete(r.customers, id)
	return nil
}

func (r *customerRepository) Register(ctx context.Context, c *model.Customer) (bool, error) {
	if c == nil || !c.IsActive() {
		return false, goerr.New("customer must be active to be registered")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[c.ID]; ok {
		return false, nil
	}

	now := time.Now().UTC()
	created := copyCustomer(c)
	created.CreatedAt = now
	created.UpdatedAt = now
	r.customers[c.ID] = created
	return true, nil
}
