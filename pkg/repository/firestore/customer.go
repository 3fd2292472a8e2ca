package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type customerRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.CustomerRepository = &customerRepository{}

func newCustomerRepository(client *firestore.Client) *customerRepository {
	return &customerRepository{
		client: client,
	}
}

func (r *customerRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "customers"))
}

// customerDocID maps a customer ID to a document ID. Customer IDs may hold
// characters such as '/' that Firestore does not allow in document IDs.
func customerDocID(id types.CustomerID) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func (r *customerRepository) doc(id types.CustomerID) *firestore.DocumentRef {
	return r.collection().Doc(customerDocID(id))
}

func decodeCustomer(doc *firestore.DocumentSnapshot) (*model.Customer, error) {
	var c model.Customer
	if err := doc.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode customer", goerr.V("doc_id", doc.Ref.ID))
	}
	return &c, nil
}

func (r *customerRepository) Get(ctx context.Context, id types.CustomerID) (*model.Customer, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get customer", goerr.V("customer_id", id))
	}
	return decodeCustomer(doc)
}

func (r *customerRepository) GetByRoomID(ctx context.Context, roomID string) (*model.Customer, error) {
	if roomID == "" {
		return nil, nil
	}

	iter := r.collection().Where("RoomID", "==", roomID).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query customer by room", goerr.V("room_id", roomID))
		}

		c, err := decodeCustomer(doc)
		if err != nil {
			return nil, err
		}
		if c.IsActive() {
			return c, nil
		}
	}

	return nil, nil
}

func (r *customerRepository) Reserve(ctx context.Context, id types.CustomerID, teamID, owner string, until time.Time) (*model.Customer, bool, error) {
	if owner == "" {
		return nil, false, goerr.New("reservation owner is required", goerr.V("customer_id", id))
	}

	ref := r.doc(id)
	var (
		current *model.Customer
		claimed bool
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, claimed = nil, false
		now := time.Now().UTC()

		reserved := &model.Customer{
			ID:            id,
			TeamID:        teamID,
			Status:        types.CustomerStatusReserved,
			ReservedBy:    owner,
			ReservedUntil: until,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to get customer")
			}
			if err := tx.Create(ref, reserved); err != nil {
				return goerr.Wrap(err, "failed to create reservation")
			}
			current, claimed = reserved, true
			return nil
		}

		existing, err := decodeCustomer(doc)
		if err != nil {
			return err
		}
		if existing.IsActive() || (existing.ReservedBy != owner && !existing.ReservationExpired(now)) {
			current = existing
			return nil
		}

		reserved.CreatedAt = existing.CreatedAt
		if err := tx.Set(ref, reserved); err != nil {
			return goerr.Wrap(err, "failed to take over reservation")
		}
		current, claimed = reserved, true
		return nil
	})
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to reserve customer", goerr.V("customer_id", id))
	}

	return current, claimed, nil
}

func (r *customerRepository) Activate(ctx context.Context, owner string, c *model.Customer) error {
	if c == nil || !c.IsActive() {
		return goerr.New("customer must be active to be stored")
	}

	ref := r.doc(c.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return interfaces.ErrReservationLost
			}
			return goerr.Wrap(err, "failed to get customer")
		}

		existing, err := decodeCustomer(doc)
		if err != nil {
			return err
		}
		if existing.Status != types.CustomerStatusReserved || existing.ReservedBy != owner {
			return interfaces.ErrReservationLost
		}

		activated := *c
		activated.CreatedAt = existing.CreatedAt
		activated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, &activated)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to activate customer",
			goerr.V("customer_id", c.ID),
			goerr.V("owner", owner),
		)
	}
	return nil
}

func (r *customerRepository) Release(ctx context.Context, id types.CustomerID, owner string) error {
	ref := r.doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to get customer")
		}

		existing, err := decodeCustomer(doc)
		if err != nil {
			return err
		}
		if existing.Status != types.CustomerStatusReserved || existing.ReservedBy != owner {
			return nil
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to release customer", goerr.V("customer_id", id))
	}
	return nil
}

func (r *customerRepository) Register(ctx context.Context, c *model.Customer) (bool, error) {
	if c == nil || !c.IsActive() {
		return false, goerr.New("customer must be active to be registered")
	}

	now := time.Now().UTC()
	created := *c
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.doc(c.ID).Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to register customer", goerr.V("customer_id", c.ID))
	}
	return true, nil
}
