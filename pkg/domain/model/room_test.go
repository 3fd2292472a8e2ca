package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

func TestSelectCustomerRoom(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	customerID := types.CustomerID("+15551234567")

	t.Run("no match", func(t *testing.T) {
		rooms := []*model.Room{
			{ID: "R1", Title: "+15550000000", CreatedAt: base},
		}
		selected, dups := model.SelectCustomerRoom(rooms, customerID)
		gt.Value(t, selected).Nil()
		gt.Array(t, dups).Length(0)
	})

	t.Run("single match", func(t *testing.T) {
		rooms := []*model.Room{
			{ID: "R1", Title: "+15550000000", CreatedAt: base},
			{ID: "R2", Title: "+15551234567", CreatedAt: base},
		}
		selected, dups := model.SelectCustomerRoom(rooms, customerID)
		gt.Value(t, selected.ID).Equal("R2")
		gt.Array(t, dups).Length(0)
	})

	t.Run("most recently created duplicate wins", func(t *testing.T) {
		rooms := []*model.Room{
			{ID: "R-old", Title: "+15551234567", CreatedAt: base},
			{ID: "R-new", Title: "+15551234567", CreatedAt: base.Add(time.Hour)},
			{ID: "R-mid", Title: "+15551234567", CreatedAt: base.Add(time.Minute)},
		}
		selected, dups := model.SelectCustomerRoom(rooms, customerID)
		gt.Value(t, selected.ID).Equal("R-new")
		gt.Array(t, dups).Length(2)
	})

	t.Run("title comparison is exact", func(t *testing.T) {
		rooms := []*model.Room{
			{ID: "R1", Title: "+15551234567 ", CreatedAt: base},
			{ID: "R2", Title: "15551234567", CreatedAt: base},
		}
		selected, _ := model.SelectCustomerRoom(rooms, customerID)
		gt.Value(t, selected).Nil()
	})
}
