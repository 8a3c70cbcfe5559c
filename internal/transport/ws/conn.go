package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/session"
)

const (
	writeWait = 10 * time.Second

	// 64 KB хватает на любой SDP-блоб
	maxMessageSize = 64 * 1024

	sendQueueSize = 256
)

var errConnClosed = errors.New("connection closed")

// wsConn реализует session.Conn: неблокирующая очередь исходящих + write pump.
// FIFO очереди и даёт relay-слою порядок доставки внутри пары.
type wsConn struct {
	id   string
	conn *websocket.Conn

	send      chan session.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan session.Event, sendQueueSize),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ev session.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	case c.send <- ev:
		return nil
	default:
		// клиент не вычитывает: рвём соединение, чтобы не ломать порядок
		// доставки выборочными потерями; участник уйдёт в reconnect-путь
		_ = c.Close()
		return errors.New("send queue overflow")
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// writePump — единственный писатель в сокет: события из очереди плюс пинги.
func (c *wsConn) writePump(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
