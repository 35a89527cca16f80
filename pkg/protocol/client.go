package protocol

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

type Config struct {
	URL   string
	Shard string
	// Timeout bounds one request/reply round trip; 5s when zero.
	Timeout time.Duration
	// Reconnect is the delay between redial attempts; 2s when zero.
	Reconnect time.Duration
	// OnMessage receives frames addressed to this shard that are not a reply
	// to an outstanding request.
	OnMessage func(Message)
	Logger    *log.Logger
}

// Client is a websocket connection to the hub. Run must be running for
// Request to see replies.
type Client struct {
	cfg    Config
	logger *log.Logger

	mu   sync.Mutex
	conn *ws.Conn

	writeMu sync.Mutex
	reqMu   sync.Mutex

	waiterMu sync.Mutex
	waiter   chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("empty hub url")
	}
	if cfg.Shard == "" {
		return nil, errors.New("empty shard name")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	logger.Debug("dial hub", "url", cfg.URL)
	conn, _, err := ws.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		conn:   conn,
		closed: make(chan struct{}),
	}, nil
}

// Request sends one message from this shard and waits for the reply.
// Requests are serialized: the hub answers one at a time.
func (c *Client) Request(ctx context.Context, to, verb, noun string, args ...string) (Message, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	w := c.installWaiter()
	defer c.clearWaiter()

	msg := Message{To: to, Verb: verb, Noun: noun, Args: args, From: c.cfg.Shard}
	if err := c.write(msg.String()); err != nil {
		return Message{}, fmt.Errorf("transmit: %w", err)
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case reply := <-w:
		return reply, reply.Err()
	case <-timer.C:
		return Message{}, fmt.Errorf("no reply to %s within %s", msg, c.cfg.Timeout)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.closed:
		return Message{}, errors.New("hub connection closed")
	}
}

// Run reads frames until ctx is cancelled or the client is closed,
// redialling whenever the hub drops the connection.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.closed:
		}
	}()

	for {
		_, data, err := c.current().ReadMessage()
		if err != nil {
			if c.isClosed() {
				return nil
			}
			if isClosedErr(err) {
				c.logger.Warn("hub connection lost, reconnecting", "url", c.cfg.URL)
			} else {
				c.logger.Error("hub read failed", "err", err)
			}
			if err := c.redial(ctx); err != nil {
				return nil
			}
			c.logger.Info("reconnected to hub")
			continue
		}

		c.logger.Debug("hub frame", "msg", string(data))
		msg, err := Parse(string(data))
		if err != nil {
			c.logger.Warn("unparsable hub frame", "msg", string(data), "err", err)
			continue
		}
		if msg.To != c.cfg.Shard && msg.To != Broadcast {
			continue
		}

		if w := c.currentWaiter(); w != nil {
			select {
			case w <- msg:
				continue
			default:
			}
		}
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.current().Close()
	})
	return err
}

func (c *Client) write(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.logger.Debug("hub write", "msg", line)
	return c.current().WriteMessage(ws.TextMessage, []byte(line))
}

func (c *Client) redial(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return errors.New("closed")
		case <-time.After(c.cfg.Reconnect):
		}

		conn, _, err := ws.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Debug("redial failed", "err", err)
			continue
		}
		c.mu.Lock()
		c.conn.Close()
		c.conn = conn
		c.mu.Unlock()
		return nil
	}
}

func (c *Client) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) installWaiter() chan Message {
	c.waiterMu.Lock()
	defer c.waiterMu.Unlock()
	c.waiter = make(chan Message, 1)
	return c.waiter
}

func (c *Client) clearWaiter() {
	c.waiterMu.Lock()
	defer c.waiterMu.Unlock()
	c.waiter = nil
}

func (c *Client) currentWaiter() chan Message {
	c.waiterMu.Lock()
	defer c.waiterMu.Unlock()
	return c.waiter
}

func isClosedErr(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
