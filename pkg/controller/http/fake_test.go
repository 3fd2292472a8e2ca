package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/switchboard/pkg/controller/http"
	"github.com/secmon-lab/switchboard/pkg/repository/memory"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
)

const (
	testTeamID = "team-1"
	testBotID  = "bot-1"
)

type fakeRoom struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	TeamID  string    `json:"teamId"`
	Created time.Time `json:"created"`
}

type fakeWebhook struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Filter    string `json:"filter"`
	Secret    string `json:"secret"`
}

type fakeMessage struct {
	ID              string   `json:"id"`
	RoomID          string   `json:"roomId"`
	PersonID        string   `json:"personId,omitempty"`
	Text            string   `json:"text,omitempty"`
	Markdown        string   `json:"markdown,omitempty"`
	Files           []string `json:"files,omitempty"`
	MentionedPeople []string `json:"mentionedPeople,omitempty"`
}

// fakeWebexAPI serves the subset of the Webex REST API the relay calls
type fakeWebexAPI struct {
	mu       sync.Mutex
	seq      int
	rooms    map[string]*fakeRoom
	webhooks []*fakeWebhook
	messages map[string]*fakeMessage
	posted   []*fakeMessage
}

func newFakeWebexAPI(t *testing.T) (*fakeWebexAPI, *httptest.Server) {
	t.Helper()
	api := &fakeWebexAPI{
		rooms:    make(map[string]*fakeRoom),
		messages: make(map[string]*fakeMessage),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms", api.listRooms)
	mux.HandleFunc("POST /rooms", api.createRoom)
	mux.HandleFunc("GET /rooms/{id}", api.getRoom)
	mux.HandleFunc("DELETE /rooms/{id}", api.deleteRoom)
	mux.HandleFunc("POST /messages", api.createMessage)
	mux.HandleFunc("GET /messages/{id}", api.getMessage)
	mux.HandleFunc("POST /webhooks", api.createWebhook)
	mux.HandleFunc("GET /people/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": testBotID, "displayName": "Relay"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeWebexAPI) nextID(prefix string) string {
	a.seq++
	return fmt.Sprintf("%s-%d", prefix, a.seq)
}

func (a *fakeWebexAPI) addRoom(room *fakeRoom) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms[room.ID] = room
}

func (a *fakeWebexAPI) addMessage(msg *fakeMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages[msg.ID] = msg
}

func (a *fakeWebexAPI) roomsTitled(title string) []*fakeRoom {
	a.mu.Lock()
	defer a.mu.Unlock()
	var rooms []*fakeRoom
	for _, r := range a.rooms {
		if r.Title == title {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (a *fakeWebexAPI) registeredWebhooks() []*fakeWebhook {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeWebhook(nil), a.webhooks...)
}

func (a *fakeWebexAPI) postedMessages() []*fakeMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeMessage(nil), a.posted...)
}

func (a *fakeWebexAPI) listRooms(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	items := []*fakeRoom{}
	for _, room := range a.rooms {
		if room.TeamID == r.URL.Query().Get("teamId") && room.Type == r.URL.Query().Get("type") {
			items = append(items, room)
		}
	}
	writeJSON(w, map[string]any{"items": items})
}

func (a *fakeWebexAPI) createRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		TeamID string `json:"teamId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	room := &fakeRoom{ID: a.nextID("room"), Title: req.Title, Type: "group", TeamID: req.TeamID, Created: time.Now().UTC()}
	a.rooms[room.ID] = room
	writeJSON(w, room)
}

func (a *fakeWebexAPI) getRoom(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	room, ok := a.rooms[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, room)
}

func (a *fakeWebexAPI) deleteRoom(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rooms, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *fakeWebexAPI) createMessage(w http.ResponseWriter, r *http.Request) {
	var msg fakeMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.rooms[msg.RoomID]; !ok {
		http.NotFound(w, r)
		return
	}
	msg.ID = a.nextID("msg")
	msg.PersonID = testBotID
	a.posted = append(a.posted, &msg)
	a.messages[msg.ID] = &msg
	writeJSON(w, &msg)
}

func (a *fakeWebexAPI) getMessage(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg, ok := a.messages[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, msg)
}

func (a *fakeWebexAPI) createWebhook(w http.ResponseWriter, r *http.Request) {
	var hook fakeWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	hook.ID = a.nextID("webhook")
	a.webhooks = append(a.webhooks, &hook)
	writeJSON(w, &hook)
}

type sentSMS struct {
	To   string
	Text string
}

// fakeTropoAPI records session creation requests
type fakeTropoAPI struct {
	mu     sync.Mutex
	sent   []sentSMS
	status int
}

func newFakeTropoAPI(t *testing.T) (*fakeTropoAPI, *httptest.Server) {
	t.Helper()
	api := &fakeTropoAPI{status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /1.0/sessions", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()

		if api.status != http.StatusOK {
			w.WriteHeader(api.status)
			return
		}
		q := r.URL.Query()
		api.sent = append(api.sent, sentSMS{To: q.Get("numbertodial"), Text: q.Get("msg")})
		writeJSON(w, map[string]any{"success": true, "id": fmt.Sprintf("session-%d", len(api.sent))})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeTropoAPI) setStatus(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

func (a *fakeTropoAPI) sentMessages() []sentSMS {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sentSMS(nil), a.sent...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// testEnv wires the server to real API clients talking to fake APIs
type testEnv struct {
	repo   *memory.Memory
	uc     *usecase.UseCases
	server *httpctrl.Server
	webex  *fakeWebexAPI
	tropo  *fakeTropoAPI
}

func newTestEnv(t *testing.T, opts ...usecase.Option) *testEnv {
	t.Helper()

	policy := retry.Policy{MaxTries: 2, Timeout: 5 * time.Second, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	webexAPI, webexSrv := newFakeWebexAPI(t)
	wx, err := webex.New("webex-token", webex.WithBaseURL(webexSrv.URL), webex.WithRetryPolicy(policy))
	gt.NoError(t, err).Required()

	tropoAPI, tropoSrv := newFakeTropoAPI(t)
	sms, err := tropo.New("tropo-token", tropo.WithBaseURL(tropoSrv.URL), tropo.WithRetryPolicy(policy))
	gt.NoError(t, err).Required()

	repo := memory.New()
	base := []usecase.Option{
		usecase.WithWebex(wx),
		usecase.WithTropo(sms),
		usecase.WithTeamID(testTeamID),
		usecase.WithWebhookURL("https://relay.example.com/spark-webhook"),
	}
	uc := usecase.New(repo, append(base, opts...)...)

	server, err := httpctrl.New(
		httpctrl.WithCustomerUseCase(uc.Customer),
		httpctrl.WithRelayUseCase(uc.Relay),
		httpctrl.WithMessages(uc.Messages()),
	)
	gt.NoError(t, err).Required()

	return &testEnv{
		repo:   repo,
		uc:     uc,
		server: server,
		webex:  webexAPI,
		tropo:  tropoAPI,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}
