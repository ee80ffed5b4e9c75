package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/quantrelay/termsync/internal/observability"
)

// The gateway throttles control messages to a handful per second per
// connection; pace subscribe requests accordingly.
const controlMessageInterval = 250 * time.Millisecond

// Client maintains the account event stream over a single WebSocket
// connection with automatic reconnection.
type Client struct {
	url       string
	token     string
	accountID string
	listener  EventListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	conn    *websocket.Conn
	connMu  sync.RWMutex
	limiter *rate.Limiter

	ready     chan struct{}
	readyOnce sync.Once
}

type subscribeRequest struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	AccountID string `json:"accountId"`
}

// NewClient builds a stream client for one account. Events decoded from the
// stream are dispatched onto listener.
func NewClient(ctx context.Context, url, token, accountID string, listener EventListener) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		url:       url,
		token:     token,
		accountID: accountID,
		listener:  listener,
		ctx:       clientCtx,
		cancel:    cancel,
		limiter:   rate.NewLimiter(rate.Every(controlMessageInterval), 1),
		ready:     make(chan struct{}),
	}
}

// Start establishes the connection in the background and waits for the first
// successful dial.
func (c *Client) Start() error {
	c.wg.Go(func() {
		if err := c.connect(); err != nil && !errors.Is(err, context.Canceled) {
			observability.Log().Error("stream connection failed",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "error", Value: err.Error()})
		}
	})

	select {
	case <-c.ready:
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("timeout waiting for stream connection")
	case <-c.ctx.Done():
		return fmt.Errorf("stream client context done: %w", c.ctx.Err())
	}
}

// Stop closes the connection and waits for the background loop to exit.
func (c *Client) Stop() {
	c.cancel()
	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "shutdown")
		c.conn = nil
	}
	c.connMu.Unlock()
	c.wg.Wait()
}

// connect maintains the connection, resubscribing after every reconnect.
func (c *Client) connect() error {
	backoffCfg := backoff.NewExponentialBackOff()

	for {
		select {
		case <-c.ctx.Done():
			return context.Canceled
		default:
		}

		conn, _, err := websocket.Dial(c.ctx, c.dialURL(), nil)
		if err != nil {
			observability.Log().Error("dial stream",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "error", Value: err.Error()})
			select {
			case <-c.ctx.Done():
				return context.Canceled
			case <-time.After(backoffCfg.NextBackOff()):
				continue
			}
		}

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()

		c.readyOnce.Do(func() {
			close(c.ready)
		})
		backoffCfg.Reset()

		if err := c.subscribe(conn); err != nil {
			observability.Log().Error("subscribe after connect",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "error", Value: err.Error()})
		}

		if err := c.readLoop(conn); err != nil {
			if errors.Is(err, context.Canceled) {
				return context.Canceled
			}
			observability.Log().Info("stream read loop ended",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "error", Value: err.Error()})
		}

		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()

		select {
		case <-c.ctx.Done():
			return context.Canceled
		case <-time.After(backoffCfg.NextBackOff()):
		}
	}
}

func (c *Client) dialURL() string {
	if c.token == "" {
		return c.url
	}
	return fmt.Sprintf("%s?auth-token=%s", c.url, c.token)
}

// subscribe requests the account event stream on a fresh connection.
func (c *Client) subscribe(conn *websocket.Conn) error {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return fmt.Errorf("pace subscribe request: %w", err)
	}

	req := subscribeRequest{
		RequestID: uuid.NewString(),
		Type:      "subscribe",
		AccountID: c.accountID,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscribe request: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write subscribe request: %w", err)
	}
	return nil
}

// readLoop reads stream messages and dispatches decoded frames.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.Read(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return context.Canceled
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.MessageText {
			continue
		}

		frame, err := decodeFrame(data)
		if err != nil {
			observability.Log().Error("drop undecodable frame",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "error", Value: err.Error()})
			continue
		}
		if frame.AccountID != "" && frame.AccountID != c.accountID {
			continue
		}
		if err := Dispatch(c.listener, frame); err != nil {
			observability.Log().Error("dispatch frame",
				observability.Field{Key: "accountId", Value: c.accountID},
				observability.Field{Key: "type", Value: frame.Type},
				observability.Field{Key: "error", Value: err.Error()})
		}
	}
}
