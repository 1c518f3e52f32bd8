package ws_test

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrhttp/zephyr/core/ws"
)

func newHubServer(t *testing.T, hub *ws.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleUpgrade))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestIsUpgrade(t *testing.T) {
	t.Parallel()

	assert.True(t, ws.IsUpgrade(upgradeRequest("/x")))

	plain := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.False(t, ws.IsUpgrade(plain))

	// Connection may carry several tokens.
	multi := upgradeRequest("/x")
	multi.Header.Set("Connection", "keep-alive, Upgrade")
	assert.True(t, ws.IsUpgrade(multi))
}

func TestRouteRegistration(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	noop := func(*ws.Conn, *http.Request) {}

	require.NoError(t, hub.Route("/chat", noop))
	require.NoError(t, hub.Route("/files/*", noop))

	assert.ErrorIs(t, hub.Route("chat", noop), ws.ErrInvalidPattern)
	assert.ErrorIs(t, hub.Route("/a/*/b", noop), ws.ErrInvalidPattern)
	assert.ErrorIs(t, hub.Route("/chat", noop), ws.ErrDuplicateRoute)
}

func TestHandshakeValidation(t *testing.T) {
	t.Parallel()

	newHub := func(t *testing.T, opts ...ws.Option) *ws.Hub {
		hub := ws.NewHub(opts...)
		require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
		t.Cleanup(hub.Close)
		return hub
	}

	t.Run("missing upgrade headers is 400", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t)
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method is 400", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t)
		req := upgradeRequest("/chat")
		req.Method = http.MethodPost
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong version is 400", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t)
		req := upgradeRequest("/chat")
		req.Header.Set("Sec-WebSocket-Version", "8")
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing key is 400", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t)
		req := upgradeRequest("/chat")
		req.Header.Del("Sec-WebSocket-Key")
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t)
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, upgradeRequest("/nope"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejected origin is 403", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t, ws.WithAllowedOrigins("https://ok.example"))
		req := upgradeRequest("/chat")
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req = upgradeRequest("/chat")
		req.Header.Set("Origin", "https://ok.example")
		rec = httptest.NewRecorder()
		hub.HandleUpgrade(rec, req)
		// Passes origin policy; fails later because the recorder cannot hijack.
		assert.NotEqual(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejected client is 401", func(t *testing.T) {
		t.Parallel()

		hub := newHub(t, ws.WithVerifyClient(func(r *http.Request) bool {
			return r.Header.Get("Authorization") != ""
		}))
		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, upgradeRequest("/chat"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("connection cap is 503", func(t *testing.T) {
		t.Parallel()

		hub := ws.NewHub(ws.WithMaxConnections(1))
		require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
		srv := newHubServer(t, hub)

		dial(t, srv, "/chat")
		require.Eventually(t, func() bool { return hub.Connections() == 1 },
			time.Second, 10*time.Millisecond)

		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, upgradeRequest("/chat"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("closed hub is 503", func(t *testing.T) {
		t.Parallel()

		hub := ws.NewHub()
		require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
		hub.Close()

		rec := httptest.NewRecorder()
		hub.HandleUpgrade(rec, upgradeRequest("/chat"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		assert.ErrorIs(t, hub.Route("/late", func(*ws.Conn, *http.Request) {}), ws.ErrHubClosed)
	})
}

// The accept key is fixed by RFC 6455: SHA-1 of key + GUID, base64 encoded.
// The sample nonce from the RFC must produce the sample accept value.
func TestHandshakeAcceptKey(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
	srv := newHubServer(t, hub)

	raw, err := net.Dial("tcp", srv.Listener.Addr().String())
	require.NoError(t, err)
	defer raw.Close()

	request := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	_, err = raw.Write([]byte(request))
	require.NoError(t, err)

	require.NoError(t, raw.SetReadDeadline(time.Now().Add(2*time.Second)))
	resp, err := http.ReadResponse(bufio.NewReader(raw), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", resp.Header.Get("Sec-WebSocket-Accept"))
	assert.Equal(t, "websocket", strings.ToLower(resp.Header.Get("Upgrade")))
}

func TestEcho(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	require.NoError(t, hub.Route("/echo", func(conn *ws.Conn, r *http.Request) {
		assert.NotEmpty(t, conn.ID())
		assert.Equal(t, "/echo", conn.URL())
		conn.OnText(func(msg string) {
			_ = conn.SendText(msg)
		})
		conn.OnBinary(func(data []byte) {
			_ = conn.SendBinary(data)
		})
	}))
	srv := newHubServer(t, hub)
	client := dial(t, srv, "/echo")

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hi")))
	mt, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "hi", string(msg))

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	mt, msg, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte{1, 2, 3}, msg)
}

func TestWildcardRoutePreference(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	served := make(chan string, 2)
	require.NoError(t, hub.Route("/chat", func(conn *ws.Conn, r *http.Request) {
		served <- "exact"
	}))
	require.NoError(t, hub.Route("/chat/*", func(conn *ws.Conn, r *http.Request) {
		served <- "wildcard"
	}))
	srv := newHubServer(t, hub)

	dial(t, srv, "/chat")
	assert.Equal(t, "exact", <-served)

	dial(t, srv, "/chat/room/7")
	assert.Equal(t, "wildcard", <-served)
}

func TestRooms(t *testing.T) {
	t.Parallel()

	t.Run("broadcast reaches members but not the excluded sender", func(t *testing.T) {
		t.Parallel()

		hub := ws.NewHub()
		require.NoError(t, hub.Route("/chat", func(conn *ws.Conn, r *http.Request) {
			conn.OnText(func(msg string) {
				hub.BroadcastText("lobby", msg, conn)
			})
		}, ws.WithAutoJoin("lobby")))
		srv := newHubServer(t, hub)

		sender := dial(t, srv, "/chat")
		receiver := dial(t, srv, "/chat")
		require.Eventually(t, func() bool { return hub.RoomSize("lobby") == 2 },
			time.Second, 10*time.Millisecond)

		require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("hello room")))

		_, msg, err := receiver.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello room", string(msg))

		require.NoError(t, sender.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		_, _, err = sender.ReadMessage()
		var netErr net.Error
		require.ErrorAs(t, err, &netErr)
		assert.True(t, netErr.Timeout(), "sender must not receive its own broadcast")
	})

	t.Run("membership stays consistent through join leave and disconnect", func(t *testing.T) {
		t.Parallel()

		hub := ws.NewHub()
		conns := make(chan *ws.Conn, 2)
		require.NoError(t, hub.Route("/chat", func(conn *ws.Conn, r *http.Request) {
			conns <- conn
		}, ws.WithAutoJoin("lobby")))
		srv := newHubServer(t, hub)

		c1 := dial(t, srv, "/chat")
		server1 := <-conns
		dial(t, srv, "/chat")
		server2 := <-conns

		require.Eventually(t, func() bool { return hub.RoomSize("lobby") == 2 },
			time.Second, 10*time.Millisecond)

		server1.Join("vip")
		assert.ElementsMatch(t, []string{"lobby", "vip"}, server1.Rooms())
		assert.Equal(t, 1, hub.RoomSize("vip"))

		server1.Leave("vip")
		assert.Equal(t, 0, hub.RoomSize("vip"))
		assert.NotContains(t, hub.Rooms(), "vip", "empty rooms are deleted")

		// Disconnecting removes the connection from every room.
		require.NoError(t, c1.Close())
		require.Eventually(t, func() bool {
			return hub.RoomSize("lobby") == 1 && hub.Connections() == 1
		}, time.Second, 10*time.Millisecond)

		assert.ElementsMatch(t, []string{"lobby"}, server2.Rooms())
	})
}

func TestReadLimit(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub(ws.WithMaxMessageSize(16))
	closed := make(chan int, 1)
	require.NoError(t, hub.Route("/chat", func(conn *ws.Conn, r *http.Request) {
		conn.OnClose(func(code int, reason string) {
			closed <- code
		})
	}))
	srv := newHubServer(t, hub)
	client := dial(t, srv, "/chat")

	require.NoError(t, client.WriteMessage(websocket.TextMessage, make([]byte, 64)))

	// The server closes with 1009 and the client observes the close frame.
	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseMessageTooBig, closeErr.Code)

	select {
	case code := <-closed:
		assert.Equal(t, websocket.CloseMessageTooBig, code)
	case <-time.After(time.Second):
		t.Fatal("close callback not invoked")
	}
}

func TestHeartbeat(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub(ws.WithHeartbeat(20*time.Millisecond, 80*time.Millisecond))
	require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
	srv := newHubServer(t, hub)

	t.Run("reading client stays connected", func(t *testing.T) {
		client := dial(t, srv, "/chat")
		done := make(chan struct{})
		go func() {
			// The default ping handler answers pongs while reading.
			for {
				if _, _, err := client.ReadMessage(); err != nil {
					close(done)
					return
				}
			}
		}()

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, 1, hub.Connections())

		client.Close()
		<-done
		require.Eventually(t, func() bool { return hub.Connections() == 0 },
			time.Second, 10*time.Millisecond)
	})

	t.Run("silent client is reaped", func(t *testing.T) {
		// Dial without ever reading, so pings are never answered.
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
		client, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		resp.Body.Close()
		defer client.Close()

		require.Eventually(t, func() bool { return hub.Connections() == 0 },
			2*time.Second, 20*time.Millisecond)
	})
}

func TestHubClose(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	require.NoError(t, hub.Route("/chat", func(*ws.Conn, *http.Request) {}))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleUpgrade))
	defer srv.Close()

	client := dial(t, srv, "/chat")
	require.Eventually(t, func() bool { return hub.Connections() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Close()

	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, 0, hub.Connections())
}

func TestSendOnClosedConn(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	conns := make(chan *ws.Conn, 1)
	require.NoError(t, hub.Route("/chat", func(conn *ws.Conn, r *http.Request) {
		conns <- conn
	}))
	srv := newHubServer(t, hub)

	dial(t, srv, "/chat")
	server := <-conns

	require.NoError(t, server.Close(websocket.CloseNormalClosure, "bye"))
	require.NoError(t, server.Close(websocket.CloseNormalClosure, "bye"), "close is idempotent")

	assert.ErrorIs(t, server.SendText("late"), ws.ErrConnClosed)
	assert.ErrorIs(t, server.SendBinary([]byte{1}), ws.ErrConnClosed)
	assert.ErrorIs(t, server.SendJSON(map[string]int{"a": 1}), ws.ErrConnClosed)
}
