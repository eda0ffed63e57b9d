package events

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/asjadnft/sui-indexer/go/sui"
)

func dialHub(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	var url = "ws" + strings.TrimPrefix(server.URL, "http") + "/subscribe"
	if query != "" {
		url += "?" + query
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testEvent(eventType, sender string) sui.Event {
	return sui.Event{
		ID:        sui.EventID{TxDigest: "tx-a", EventSeq: 0},
		PackageID: "0x2",
		Sender:    sender,
		Type:      eventType,
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) sui.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event sui.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	var hub = NewHub()
	var server = httptest.NewServer(hub)
	t.Cleanup(server.Close)

	var conn = dialHub(t, server, "")
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 },
		time.Second, 5*time.Millisecond)

	var effects = &sui.TransactionEffects{TransactionDigest: "tx-a"}
	require.NoError(t, hub.ProcessEvents(context.Background(), effects,
		[]sui.Event{testEvent("0x2::coin::CoinEvent", "0xaaa")}))

	var got = readEvent(t, conn)
	require.Equal(t, "0x2::coin::CoinEvent", got.Type)
}

func TestHubFiltersByTypeAndSender(t *testing.T) {
	var hub = NewHub()
	var server = httptest.NewServer(hub)
	t.Cleanup(server.Close)

	var coinOnly = dialHub(t, server, "eventType=0x2::coin::CoinEvent")
	var senderOnly = dialHub(t, server, "sender=0xbbb")
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 2 },
		time.Second, 5*time.Millisecond)

	var effects = &sui.TransactionEffects{TransactionDigest: "tx-a"}
	require.NoError(t, hub.ProcessEvents(context.Background(), effects, []sui.Event{
		testEvent("0x2::coin::CoinEvent", "0xaaa"),
		testEvent("0x9::other::Event", "0xbbb"),
	}))

	require.Equal(t, "0x2::coin::CoinEvent", readEvent(t, coinOnly).Type)
	require.Equal(t, "0x9::other::Event", readEvent(t, senderOnly).Type)
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	var hub = NewHub()
	var server = httptest.NewServer(hub)
	t.Cleanup(server.Close)

	var conn = dialHub(t, server, "")
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 },
		time.Second, 5*time.Millisecond)

	// Publishing with no subscribers is a no-op.
	var effects = &sui.TransactionEffects{TransactionDigest: "tx-a"}
	require.NoError(t, hub.ProcessEvents(context.Background(), effects,
		[]sui.Event{testEvent("0x2::coin::CoinEvent", "0xaaa")}))
}
