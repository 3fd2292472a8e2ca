package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

func newCustomerID(t *testing.T) types.CustomerID {
	return types.CustomerID(fmt.Sprintf("+1555%d", time.Now().UnixNano()))
}

func activeCustomer(id types.CustomerID, roomID string) *model.Customer {
	c := &model.Customer{ID: id, Status: types.CustomerStatusReserved}
	room := &model.Room{ID: roomID, Title: id.String(), TeamID: "team-1", Type: model.RoomTypeGroup}
	c.Activate(room, &model.Webhook{ID: "wh-" + roomID, Secret: "secret-" + roomID}, time.Now().UTC())
	return c
}

func runCustomerRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Get returns nil for unknown customer", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c, err := repo.Customer().Get(ctx, newCustomerID(t))
		gt.NoError(t, err).Required()
		gt.Value(t, c).Nil()
	})

	t.Run("Reserve creates reservation once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)
		until := time.Now().Add(time.Minute)

		reserved, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", until)
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
		gt.Value(t, reserved.Status).Equal(types.CustomerStatusReserved)
		gt.Value(t, reserved.ReservedBy).Equal("owner-a")

		other, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-b", until)
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
		gt.Value(t, other.ReservedBy).Equal("owner-a")

		again, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", until)
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
		gt.Value(t, again.ReservedBy).Equal("owner-a")
	})

	t.Run("Reserve takes over expired reservation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		_, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", time.Now().Add(-time.Second))
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()

		taken, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-b", time.Now().Add(time.Minute))
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
		gt.Value(t, taken.ReservedBy).Equal("owner-b")

		// The previous owner can no longer activate
		err = repo.Customer().Activate(ctx, "owner-a", activeCustomer(id, "room-x"))
		gt.Bool(t, errors.Is(err, interfaces.ErrReservationLost)).True()
	})

	t.Run("Reserve never takes over active customer", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		_, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", time.Now().Add(time.Minute))
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
		gt.NoError(t, repo.Customer().Activate(ctx, "owner-a", activeCustomer(id, "room-1"))).Required()

		current, ok, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", time.Now().Add(time.Minute))
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
		gt.Bool(t, current.IsActive()).True()
		gt.Value(t, current.RoomID).Equal("room-1")
	})

	t.Run("Activate binds room and webhook", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		_, _, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", time.Now().Add(time.Minute))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Customer().Activate(ctx, "owner-a", activeCustomer(id, "room-2"))).Required()

		got, err := repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Bool(t, got.IsActive()).True()
		gt.Value(t, got.RoomID).Equal("room-2")
		gt.Value(t, got.TeamID).Equal("team-1")
		gt.Value(t, got.WebhookSecret()).Equal("secret-room-2")
		gt.Value(t, got.ReservedBy).Equal("")

		byRoom, err := repo.Customer().GetByRoomID(ctx, "room-2")
		gt.NoError(t, err).Required()
		gt.Value(t, byRoom).NotNil()
		gt.Value(t, byRoom.ID).Equal(id)
	})

	t.Run("Activate without reservation fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Customer().Activate(ctx, "owner-a", activeCustomer(newCustomerID(t), "room-3"))
		gt.Bool(t, errors.Is(err, interfaces.ErrReservationLost)).True()
	})

	t.Run("GetByRoomID ignores unknown room", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		c, err := repo.Customer().GetByRoomID(ctx, fmt.Sprintf("room-%d", time.Now().UnixNano()))
		gt.NoError(t, err).Required()
		gt.Value(t, c).Nil()
	})

	t.Run("Release removes own reservation only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		_, _, err := repo.Customer().Reserve(ctx, id, "team-1", "owner-a", time.Now().Add(time.Minute))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Customer().Release(ctx, id, "owner-b")).Required()
		got, err := repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()

		gt.NoError(t, repo.Customer().Release(ctx, id, "owner-a")).Required()
		got, err = repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("Register creates only when absent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		created, err := repo.Customer().Register(ctx, activeCustomer(id, "room-4"))
		gt.NoError(t, err).Required()
		gt.Bool(t, created).True()

		created, err = repo.Customer().Register(ctx, activeCustomer(id, "room-5"))
		gt.NoError(t, err).Required()
		gt.Bool(t, created).False()

		got, err := repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, got.RoomID).Equal("room-4")
	})

	t.Run("concurrent Reserve grants a single owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)
		until := time.Now().Add(time.Minute)

		const n = 10
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
		)
		for i := range n {
			wg.Add(1)
			go func(owner string) {
				defer wg.Done()
				_, ok, err := repo.Customer().Reserve(ctx, id, "team-1", owner, until)
				if err != nil {
					// Firestore may abort contended transactions
					return
				}
				if ok {
					mu.Lock()
					winners = append(winners, owner)
					mu.Unlock()
				}
			}(fmt.Sprintf("owner-%d", i))
		}
		wg.Wait()

		gt.Array(t, winners).Length(1)
	})

	t.Run("returned customer is a copy", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := newCustomerID(t)

		_, err := repo.Customer().Register(ctx, activeCustomer(id, "room-6"))
		gt.NoError(t, err).Required()

		got, err := repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		got.Webhook.Secret = "changed"
		got.RoomID = "changed"

		again, err := repo.Customer().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Value(t, again.RoomID).Equal("room-6")
		gt.Value(t, again.WebhookSecret()).Equal("secret-room-6")
	})
}

func TestCustomerRepository(t *testing.T) {
	for name, newRepo := range repositories {
		t.Run(name, func(t *testing.T) {
			runCustomerRepositoryTest(t, newRepo)
		})
	}
}
