package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
)

const (
	testTeamID     = "team-1"
	testBotID      = "bot-1"
	testWebhookURL = "https://relay.example.com/spark-webhook"
)

// mockWebex is an in-memory implementation of webex.Service for testing
type mockWebex struct {
	mu       sync.Mutex
	seq      int
	rooms    map[string]*model.Room
	webhooks []*model.Webhook
	messages map[string]*model.ChatMessage
	posted   []postedMessage
	deleted  []string

	createRoomDelay  time.Duration
	createRoomErr    error
	createWebhookErr error
	createMessageErr error
	listRoomsCalls   int
}

type postedMessage struct {
	RoomID  string
	Message model.OutboundMessage
}

func newMockWebex() *mockWebex {
	return &mockWebex{
		rooms:    make(map[string]*model.Room),
		messages: make(map[string]*model.ChatMessage),
	}
}

func (m *mockWebex) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// addRoom registers an existing room
func (m *mockWebex) addRoom(room *model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = room
}

func (m *mockWebex) addMessage(msg *model.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = msg
}

func (m *mockWebex) roomsTitled(title string) []*model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []*model.Room
	for _, r := range m.rooms {
		if r.Title == title {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (m *mockWebex) webhookCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.webhooks)
}

func (m *mockWebex) postedMessages() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.posted...)
}

func (m *mockWebex) ListRooms(ctx context.Context, teamID, roomType string) ([]*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listRoomsCalls++

	var rooms []*model.Room
	for _, r := range m.rooms {
		if r.TeamID == teamID && r.Type == roomType {
			copied := *r
			rooms = append(rooms, &copied)
		}
	}
	return rooms, nil
}

func (m *mockWebex) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, webex.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockWebex) CreateRoom(ctx context.Context, title, teamID string) (*model.Room, error) {
	if m.createRoomDelay > 0 {
		time.Sleep(m.createRoomDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createRoomErr != nil {
		return nil, m.createRoomErr
	}
	room := &model.Room{
		ID:        m.nextID("room"),
		Title:     title,
		TeamID:    teamID,
		Type:      model.RoomTypeGroup,
		CreatedAt: time.Now(),
	}
	m.rooms[room.ID] = room
	copied := *room
	return &copied, nil
}

func (m *mockWebex) DeleteRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	m.deleted = append(m.deleted, roomID)
	return nil
}

func (m *mockWebex) CreateMessage(ctx context.Context, roomID string, msg *model.OutboundMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createMessageErr != nil {
		return "", m.createMessageErr
	}
	m.posted = append(m.posted, postedMessage{RoomID: roomID, Message: *msg})
	return m.nextID("msg"), nil
}

func (m *mockWebex) GetMessage(ctx context.Context, messageID string) (*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[messageID]
	if !ok {
		return nil, webex.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

func (m *mockWebex) CreateWebhook(ctx context.Context, hook *model.Webhook) (*model.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createWebhookErr != nil {
		return nil, m.createWebhookErr
	}
	created := *hook
	created.ID = m.nextID("webhook")
	m.webhooks = append(m.webhooks, &created)
	copied := created
	return &copied, nil
}

func (m *mockWebex) GetMe(ctx context.Context) (*webex.Person, error) {
	return &webex.Person{ID: testBotID, DisplayName: "Relay"}, nil
}

// mockTropo records sent SMS
type mockTropo struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

type sentSMS struct {
	To   types.CustomerID
	Text string
}

func (m *mockTropo) SendSMS(ctx context.Context, to types.CustomerID, text string) (*tropo.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, sentSMS{To: to, Text: text})
	return &tropo.Delivery{StatusCode: 200, SessionID: fmt.Sprintf("session-%d", len(m.sent)), Success: true}, nil
}

func (m *mockTropo) sentMessages() []sentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentSMS(nil), m.sent...)
}

// mockSheets records signup rows
type mockSheets struct {
	mu   sync.Mutex
	rows []types.CustomerID
	err  error
}

func (m *mockSheets) LogSignup(ctx context.Context, customerID types.CustomerID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, customerID)
	return nil
}

// mockSlack records posted notices
type mockSlack struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockSlack) PostMessage(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return "1.2", nil
}
