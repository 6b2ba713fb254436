package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

var (
	errConnGone    = errors.New("connection gone")
	errSendBacklog = errors.New("send backlog full")
)

// Conn wraps one websocket for a room member. The write loop is the only
// goroutine touching the socket for writes; everyone else goes through Send.
type Conn struct {
	id   string
	ws   *websocket.Conn
	out  chan []byte
	dead chan struct{}
	once sync.Once
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		out:  make(chan []byte, 64),
		dead: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues a message for the write loop. It fails when the connection is
// gone or the client cannot drain its backlog; the broadcaster prunes the
// handle on either, so a slow consumer never stalls a room.
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.dead:
		return errConnGone
	default:
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.dead:
		return errConnGone
	default:
		return errSendBacklog
	}
}

// WriteLoop drains the outbound queue and pings periodically. It exits on
// the first write failure or when ctx is cancelled, marking the connection
// dead so pending Sends fail instead of piling up.
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()
	defer c.markDead()

	for {
		select {
		case msg := <-c.out:
			if err := c.ws.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-t.C:
			if err := c.ws.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Read blocks until the next text/binary frame arrives.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, nil
		}
	}
}

func (c *Conn) markDead() { c.once.Do(func() { close(c.dead) }) }

// Close closes the socket normally.
func (c *Conn) Close() error {
	c.markDead()
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
