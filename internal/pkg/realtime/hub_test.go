package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func fakeClient(hub *Hub, userID int64, buffer int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buffer),
		userID:     userID,
		remoteAddr: "test",
		logger:     zerolog.Nop(),
	}
}

func TestHub_DeliversOnlyToReceiver(t *testing.T) {
	hub, _ := startHub(t)
	alice := fakeClient(hub, 1, 4)
	bob := fakeClient(hub, 2, 4)
	hub.register <- alice
	hub.register <- bob

	ev, err := NewEvent(EventSignal, 1, map[string]string{"sdp": "v=0"})
	require.NoError(t, err)
	require.NoError(t, hub.SendToUser(context.Background(), 1, ev))

	select {
	case data := <-alice.send:
		var got Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, EventSignal, got.Type)
		assert.Equal(t, "user:1", got.Topic)
		assert.JSONEq(t, `{"sdp":"v=0"}`, string(got.Payload))
	case <-time.After(time.Second):
		t.Fatal("receiver did not get the event")
	}

	assert.Never(t, func() bool { return len(bob.send) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestHub_FanOutToEveryConnectionOfUser(t *testing.T) {
	hub, _ := startHub(t)
	tab1 := fakeClient(hub, 7, 4)
	tab2 := fakeClient(hub, 7, 4)
	hub.register <- tab1
	hub.register <- tab2

	require.Eventually(t, func() bool { return hub.ClientsCount(7) == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsOnline(7))

	ev, _ := NewEvent(EventMessageNew, 7, nil)
	require.NoError(t, hub.SendToUser(context.Background(), 7, ev))

	assert.Eventually(t, func() bool { return len(tab1.send) == 1 && len(tab2.send) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)
	slow := fakeClient(hub, 3, 1)
	hub.register <- slow

	ev, _ := NewEvent(EventMessageNew, 3, nil)
	require.NoError(t, hub.SendToUser(context.Background(), 3, ev))
	require.NoError(t, hub.SendToUser(context.Background(), 3, ev))

	assert.Eventually(t, func() bool { return hub.ClientsCount(3) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.TotalClients())
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := fakeClient(hub, 4, 1)
	hub.register <- c
	hub.unregister <- c

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHub_SendAfterStop(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.done

	ev, _ := NewEvent(EventMessageNew, 1, nil)
	// the buffered queue may still accept until full, so fill it
	var err error
	for i := 0; i < cap(hub.deliver)+1 && err == nil; i++ {
		err = hub.SendToUser(context.Background(), 1, ev)
	}
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestHandler_StreamsEventsToAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t)
	handler := NewHandler(hub, zerolog.Nop())

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		p := auth.Principal{UserID: 42, EstablishmentID: 1, Role: models.RoleStudent}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}, handler.HandleConnection)

	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(42) }, time.Second, 5*time.Millisecond)

	ev, _ := NewEvent(EventPeerJoined, 42, map[string]int64{"userId": 9})
	require.NoError(t, hub.SendToUser(context.Background(), 42, ev))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventPeerJoined, got.Type)
	assert.Equal(t, "user:42", got.Topic)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t)
	handler := NewHandler(hub, zerolog.Nop())

	router := gin.New()
	router.GET("/ws", handler.HandleConnection)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
