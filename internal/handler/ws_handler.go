package handler

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/resp"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10
)

// wsConn carries relay frames over a WebSocket: one text message is one frame.
type wsConn struct {
	conn   *websocket.Conn
	remote string

	// wmu serialises data writes; control frames are safe to send concurrently.
	wmu sync.Mutex

	closeOnce sync.Once
	stop      chan struct{}
}

func newWSConn(conn *websocket.Conn, remote string) *wsConn {
	c := &wsConn{
		conn:   conn,
		remote: remote,
		stop:   make(chan struct{}),
	}

	conn.SetReadLimit(protocol.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return c
}

// ReadFrame returns the next text or binary message, cut at the first NUL.
func (c *wsConn) ReadFrame() (string, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", errs.Wrap(errs.ErrTransport, err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return string(data), nil
	}
}

// WriteFrame sends payload as one text message.
func (c *wsConn) WriteFrame(payload string) error {
	if size := len(payload) + 1; size > protocol.MaxFrameBytes {
		return errs.NewError(errs.ErrFrameTooLarge, size, protocol.MaxFrameBytes)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}
	return nil
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}

// keepAlive pings the peer until the connection is closed.
func (c *wsConn) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades the request and runs a chat session over it. The request blocks
// until the session ends.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.WSLimiter != nil && !deps.WSLimiter.Allow(r.RemoteAddr) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "remote_addr", r.RemoteAddr)
			resp.Fail(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		ws := newWSConn(conn, r.RemoteAddr)
		go ws.keepAlive()

		logx.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

		deps.Chat.HandleConn(r.Context(), ws, "ws")
	}
}
