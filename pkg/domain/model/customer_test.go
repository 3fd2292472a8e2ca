package model_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

func TestCustomer_Activate(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Customer{
		ID:            "+15551234567",
		Status:        types.CustomerStatusReserved,
		ReservedBy:    "owner-1",
		ReservedUntil: now.Add(time.Minute),
	}
	gt.Bool(t, c.IsActive()).False()
	gt.Value(t, c.Room()).Nil()

	room := &model.Room{ID: "R1", Title: "+15551234567", TeamID: "T1"}
	c.Activate(room, &model.Webhook{ID: "W1", Secret: "s3cret"}, now)

	gt.Bool(t, c.IsActive()).True()
	gt.Value(t, c.ReservedBy).Equal("")
	gt.Value(t, c.Room().ID).Equal("R1")
	gt.Value(t, c.Room().Title).Equal("+15551234567")
	gt.Value(t, c.WebhookSecret()).Equal("s3cret")
}

func TestCustomer_ReservationExpired(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Customer{Status: types.CustomerStatusReserved, ReservedUntil: now.Add(time.Second)}
	gt.Bool(t, c.ReservationExpired(now)).False()
	gt.Bool(t, c.ReservationExpired(now.Add(2*time.Second))).True()

	c.Status = types.CustomerStatusActive
	gt.Bool(t, c.ReservationExpired(now.Add(time.Hour))).False()
}

func TestNewRoomWebhook(t *testing.T) {
	room := &model.Room{ID: "R1", Title: "+15551234567"}

	hook, err := model.NewRoomWebhook(room, "https://relay.example.com/spark-webhook")
	gt.NoError(t, err).Required()

	gt.Value(t, hook.Resource).Equal("messages")
	gt.Value(t, hook.Event).Equal("created")
	gt.Value(t, hook.Filter).Equal("roomId=R1")
	gt.Value(t, hook.TargetURL).Equal("https://relay.example.com/spark-webhook")
	gt.Number(t, len(hook.Secret)).Equal(64)
	gt.Bool(t, strings.HasPrefix(hook.Secret, hook.TargetURL)).False()

	other, err := model.NewRoomWebhook(room, "https://relay.example.com/spark-webhook")
	gt.NoError(t, err).Required()
	gt.Value(t, other.Secret).NotEqual(hook.Secret)

	_, err = model.NewRoomWebhook(&model.Room{}, "https://relay.example.com/spark-webhook")
	gt.Value(t, err).NotNil()
	_, err = model.NewRoomWebhook(room, "")
	gt.Value(t, err).NotNil()
}

func TestChatMessage(t *testing.T) {
	msg := &model.ChatMessage{RoomID: "R1", Text: "hello"}
	gt.Bool(t, msg.IsWhisper()).False()
	gt.NoError(t, msg.Validate())

	msg.MentionedPeople = []string{"P1"}
	gt.Bool(t, msg.IsWhisper()).True()

	gt.Value(t, (&model.ChatMessage{Text: "x"}).Validate()).NotNil()
	gt.Value(t, (&model.ChatMessage{RoomID: "R1"}).Validate()).NotNil()
	gt.NoError(t, (&model.ChatMessage{RoomID: "R1", ID: "M1"}).Validate())
}

func TestSignupReport(t *testing.T) {
	now := time.Now().UTC()
	report := model.NewSignupReport("+15551234567", now)

	gt.Array(t, report.Steps).Length(len(types.AllSignupSteps()))
	gt.Bool(t, report.Complete()).False()

	report.Mark(types.SignupStepRoom, types.SignupStepSucceeded, nil, now)
	report.Mark(types.SignupStepWebhook, types.SignupStepFailed, fmt.Errorf("upstream 500"), now)
	report.Mark(types.SignupStepWelcomeSMS, types.SignupStepSkipped, nil, now)
	report.Mark(types.SignupStepLog, types.SignupStepSkipped, nil, now)
	report.Mark(types.SignupStepNotify, types.SignupStepSkipped, nil, now)

	gt.Bool(t, report.Complete()).True()
	gt.Value(t, report.Succeeded()).Equal([]types.SignupStepName{types.SignupStepRoom})
	gt.Value(t, report.Failed()).Equal([]types.SignupStepName{types.SignupStepWebhook})
	gt.Value(t, report.Step(types.SignupStepWebhook).Error).Equal("upstream 500")
}

func TestTask_IsDue(t *testing.T) {
	now := time.Now().UTC()
	task := model.NewTask(types.TaskKindWelcomeSMS, "+15551234567", now)

	gt.Bool(t, task.IsDue(now)).True()

	task.NextAttemptAt = now.Add(time.Minute)
	gt.Bool(t, task.IsDue(now)).False()

	task.Status = types.TaskStatusRunning
	task.LeaseUntil = now.Add(time.Second)
	gt.Bool(t, task.IsDue(now)).False()
	gt.Bool(t, task.IsDue(now.Add(2*time.Second))).True()

	task.Status = types.TaskStatusDone
	gt.Bool(t, task.IsDue(now.Add(time.Hour))).False()

	task.Attempts = task.MaxAttempts
	gt.Bool(t, task.Exhausted()).True()
}
