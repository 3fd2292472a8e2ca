package webex_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
)

var fastRetry = retry.Policy{
	MaxTries:        3,
	Timeout:         time.Second,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
}

func newTestService(t *testing.T, handler http.HandlerFunc) webex.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := webex.New("test-token",
		webex.WithBaseURL(srv.URL+"/v1"),
		webex.WithRetryPolicy(fastRetry),
	)
	gt.NoError(t, err).Required()
	return svc
}

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := webex.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := webex.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestListRooms(t *testing.T) {
	t.Run("follows pagination and sends credentials", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer test-token")
			gt.Value(t, r.URL.Path).Equal("/v1/rooms")
			gt.Value(t, r.URL.Query().Get("teamId")).Equal("team-1")
			gt.Value(t, r.URL.Query().Get("type")).Equal("group")

			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("cursor") == "" {
				w.Header().Set("Link", `<`+srv.URL+`/v1/rooms?teamId=team-1&type=group&cursor=p2>; rel="next"`)
				_, _ = w.Write([]byte(`{"items":[{"id":"r1","title":"+15550001","type":"group","teamId":"team-1","created":"2024-01-01T00:00:00.000Z"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"items":[{"id":"r2","title":"+15550002","type":"group","teamId":"team-1","created":"2024-01-02T00:00:00.000Z"}]}`))
		}))
		t.Cleanup(srv.Close)

		svc, err := webex.New("test-token",
			webex.WithBaseURL(srv.URL+"/v1"),
			webex.WithRetryPolicy(fastRetry),
		)
		gt.NoError(t, err).Required()

		rooms, err := svc.ListRooms(context.Background(), "team-1", model.RoomTypeGroup)
		gt.NoError(t, err).Required()
		gt.Array(t, rooms).Length(2).Required()
		gt.Value(t, rooms[0].ID).Equal("r1")
		gt.Value(t, rooms[1].Title).Equal("+15550002")
		gt.Bool(t, rooms[1].CreatedAt.After(rooms[0].CreatedAt)).True()
	})
}

func TestRetry(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"id":"r1","title":"+15550001","type":"group"}`))
		})

		room, err := svc.GetRoom(context.Background(), "r1")
		gt.NoError(t, err).Required()
		gt.Value(t, room.ID).Equal("r1")
		gt.Number(t, calls.Load()).Equal(3)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := svc.CreateRoom(context.Background(), "+15550001", "team-1")
		gt.Bool(t, errors.Is(err, webex.ErrUnexpectedStatus)).True()
		gt.Number(t, calls.Load()).Equal(1)
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := svc.GetMessage(context.Background(), "m1")
		gt.Bool(t, errors.Is(err, webex.ErrUnexpectedStatus)).True()
		gt.Number(t, calls.Load()).Equal(3)
	})

	t.Run("maps 404 to ErrNotFound", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := svc.GetRoom(context.Background(), "missing")
		gt.Bool(t, errors.Is(err, webex.ErrNotFound)).True()

		// Deleting an already deleted room succeeds
		gt.NoError(t, svc.DeleteRoom(context.Background(), "missing"))
	})
}

func TestCreateRoom(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPost)
		gt.Value(t, r.URL.Path).Equal("/v1/rooms")

		var req map[string]string
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req)).Required()
		gt.Value(t, req["title"]).Equal("+15550001")
		gt.Value(t, req["teamId"]).Equal("team-1")

		_, _ = w.Write([]byte(`{"id":"r1","title":"+15550001","type":"group","teamId":"team-1"}`))
	})

	room, err := svc.CreateRoom(context.Background(), "+15550001", "team-1")
	gt.NoError(t, err).Required()
	gt.Value(t, room.ID).Equal("r1")
	gt.Value(t, room.CustomerID().String()).Equal("+15550001")
}

func TestCreateMessage(t *testing.T) {
	t.Run("posts text markdown and files", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.URL.Path).Equal("/v1/messages")

			var req map[string]any
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&req)).Required()
			gt.Value(t, req["roomId"]).Equal("r1")
			gt.Value(t, req["text"]).Equal("hello")
			gt.Value(t, req["markdown"]).Equal("**hello**")
			gt.Array(t, req["files"].([]any)).Length(1)

			_, _ = w.Write([]byte(`{"id":"m1"}`))
		})

		id, err := svc.CreateMessage(context.Background(), "r1", &model.OutboundMessage{
			Text:     "hello",
			Markdown: "**hello**",
			Files:    []string{"https://example.com/a.png"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, id).Equal("m1")
	})

	t.Run("rejects empty message", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		_, err := svc.CreateMessage(context.Background(), "r1", &model.OutboundMessage{})
		gt.Value(t, err).NotNil()
	})
}

func TestCreateWebhook(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/v1/webhooks")

		var req map[string]string
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req)).Required()
		gt.Value(t, req["resource"]).Equal("messages")
		gt.Value(t, req["event"]).Equal("created")
		gt.Value(t, req["filter"]).Equal("roomId=r1")
		gt.Value(t, req["secret"]).NotEqual("")

		_, _ = w.Write([]byte(`{"id":"wh1"}`))
	})

	hook, err := model.NewRoomWebhook(&model.Room{ID: "r1", Title: "+15550001"}, "https://relay.example.com/spark-webhook")
	gt.NoError(t, err).Required()

	created, err := svc.CreateWebhook(context.Background(), hook)
	gt.NoError(t, err).Required()
	gt.Value(t, created.ID).Equal("wh1")
	gt.Value(t, created.Secret).Equal(hook.Secret)
}

func TestGetMe(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gt.Value(t, r.URL.Path).Equal("/v1/people/me")
		_, _ = w.Write([]byte(`{"id":"bot-1","emails":["bot@webex.bot"],"displayName":"Relay"}`))
	})

	for range 3 {
		me, err := svc.GetMe(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, me.ID).Equal("bot-1")
	}
	gt.Number(t, calls.Load()).Equal(1)
}

func TestNextLink(t *testing.T) {
	t.Run("finds next relation", func(t *testing.T) {
		link := webex.NextLink([]string{`<https://webexapis.com/v1/rooms?cursor=a>; rel="prev", <https://webexapis.com/v1/rooms?cursor=b>; rel="next"`})
		gt.Value(t, link).Equal("https://webexapis.com/v1/rooms?cursor=b")
	})

	t.Run("returns empty without next", func(t *testing.T) {
		gt.Value(t, webex.NextLink(nil)).Equal("")
		gt.Value(t, webex.NextLink([]string{`<https://example.com>; rel="prev"`})).Equal("")
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_WEBEX_TOKEN")
	if token == "" {
		t.Skip("TEST_WEBEX_TOKEN is not set")
	}

	svc, err := webex.New(token)
	gt.NoError(t, err).Required()

	me, err := svc.GetMe(context.Background())
	gt.NoError(t, err).Required()
	gt.String(t, me.ID).NotEqual("")
}
