package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/training-dashboard/backend/internal/globalsync"
	ws "github.com/training-dashboard/backend/internal/websocket"
)

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ws.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestWebSocketSendsStatusAndAnswersPing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub()
	go hub.Run(ctx)

	syncer := &stubSyncer{status: globalsync.Status{Phase: globalsync.PhaseIdle}}
	srv := httptest.NewServer(WebSocketUpgrade(hub, syncer))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	require.Equal(t, ws.TypeSyncStatusChanged, first.Type)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.Equal(t, ws.TypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	require.Equal(t, ws.TypeError, readMessage(t, conn).Type)

	ws.NewEventBroadcaster(hub).BroadcastSessionCleared()
	require.Equal(t, ws.TypeSessionCleared, readMessage(t, conn).Type)
}
