package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// CustomerRepository stores the customer ID to room mapping. All mutating
// methods are atomic with respect to a single customer ID.
type CustomerRepository interface {
	// Get retrieves a customer by ID.
	// Returns nil, nil if no customer is found.
	Get(ctx context.Context, id types.CustomerID) (*model.Customer, error)

	// GetByRoomID retrieves the customer bound to roomID.
	// Returns nil, nil if no customer is found.
	GetByRoomID(ctx context.Context, roomID string) (*model.Customer, error)

	// Reserve claims id for owner until the given time. It creates a RESERVED
	// record when none exists, and takes over a RESERVED record whose
	// reservation expired or that owner already holds. The current record is
	// returned along with whether owner holds the claim; an ACTIVE record is
	// never taken over.
	Reserve(ctx context.Context, id types.CustomerID, teamID, owner string, until time.Time) (*model.Customer, bool, error)

	// Activate stores c as the ACTIVE record of c.ID. It fails with
	// ErrReservationLost unless owner still holds the reservation.
	Activate(ctx context.Context, owner string, c *model.Customer) error

	// Release deletes the reservation of id if owner holds it
	Release(ctx context.Context, id types.CustomerID, owner string) error

	// Register creates c if no record of c.ID exists and reports whether it did
	Register(ctx context.Context, c *model.Customer) (bool, error)
}
