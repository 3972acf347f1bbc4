package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/ZhuOS/ai-hedge-fund/internal/errors"
)

const (
	dialTimeout      = 10 * time.Second
	defaultKeepAlive = 10 * time.Second
	clientVersion    = 321
)

// Config holds gateway connection settings.
type Config struct {
	Host   string
	Port   int
	Logger zerolog.Logger
}

// Conn is a single connection to an OpenD gateway. All requests are
// correlated by serial number; one background goroutine owns reads.
type Conn struct {
	host   string
	port   int
	logger zerolog.Logger

	mu        sync.RWMutex
	conn      net.Conn
	connected bool
	connID    uint64
	userID    uint64
	done      chan struct{}

	writeMu sync.Mutex // serializes frame writes

	serial uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan reply
}

type reply struct {
	header *frameHeader
	body   []byte
}

// New creates an unconnected gateway client.
func New(cfg Config) *Conn {
	return &Conn{
		host:    cfg.Host,
		port:    cfg.Port,
		logger:  cfg.Logger,
		pending: make(map[uint32]chan reply),
	}
}

// Dial connects to the gateway and completes the InitConnect handshake.
func (c *Conn) Dial(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrConnectionFailed, "dialing gateway %s", addr)
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop()

	var init InitConnectS2C
	err = c.Call(ctx, ProtoInitConnect, InitConnectC2S{
		ClientVer:  clientVersion,
		ClientID:   uuid.NewString(),
		RecvNotify: false,
	}, &init)
	if err != nil {
		c.Close()
		return fmt.Errorf("gateway handshake: %w", err)
	}

	interval := time.Duration(init.KeepAliveInterval) * time.Second
	if interval <= 0 {
		interval = defaultKeepAlive
	}

	c.mu.Lock()
	c.connID = init.ConnID
	c.userID = init.LoginUserID
	done := c.done
	c.mu.Unlock()

	go c.keepAliveLoop(interval, done)

	c.logger.Info().
		Uint64("conn_id", init.ConnID).
		Int("server_ver", init.ServerVer).
		Msg("Gateway connected")

	return nil
}

// Close shuts the connection down. Safe to call repeatedly.
func (c *Conn) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	// Waiters in Call observe the closed done channel and fail with
	// ErrConnectionFailed; nothing else to drain here.
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Connected reports whether the connection is up.
func (c *Conn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ConnID returns the gateway-assigned connection ID.
func (c *Conn) ConnID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// UserID returns the gateway login user ID.
func (c *Conn) UserID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// NextSerial returns a fresh serial number, shared with request framing.
func (c *Conn) NextSerial() uint32 {
	return atomic.AddUint32(&c.serial, 1)
}

// Call sends one request and decodes its s2c payload into out (which may be
// nil). The context bounds the whole round trip; a gateway retType other
// than success surfaces as a GatewayError.
func (c *Conn) Call(ctx context.Context, protoID uint32, c2s interface{}, out interface{}) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return apperrors.ErrNotConnected
	}
	conn := c.conn
	done := c.done
	c.mu.RUnlock()

	body, err := json.Marshal(request{C2S: c2s})
	if err != nil {
		return fmt.Errorf("encoding proto %d request: %w", protoID, err)
	}

	serial := c.NextSerial()
	ch := make(chan reply, 1)
	c.pendingMu.Lock()
	c.pending[serial] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, serial)
		c.pendingMu.Unlock()
	}()

	frame := encodeFrame(protoID, serial, body)
	start := time.Now()

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	_, err = conn.Write(frame)
	conn.SetWriteDeadline(time.Time{})
	c.writeMu.Unlock()
	if err != nil {
		return apperrors.Wrapf(err, "writing proto %d", protoID)
	}

	select {
	case <-ctx.Done():
		return apperrors.Wrapf(apperrors.ErrTimeout, "proto %d", protoID)
	case <-done:
		return apperrors.ErrConnectionFailed
	case rep := <-ch:
		c.logger.Debug().
			Uint32("proto_id", protoID).
			Dur("duration", time.Since(start)).
			Msg("Gateway call completed")
		return decodeResponse(int(protoID), rep.body, out)
	}
}

func decodeResponse(protoID int, body []byte, out interface{}) error {
	var envelope struct {
		RetType int             `json:"retType"`
		RetMsg  string          `json:"retMsg"`
		ErrCode int             `json:"errCode"`
		S2C     json.RawMessage `json:"s2c"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding proto %d response: %w", protoID, err)
	}
	if envelope.RetType != RetTypeSucceed {
		return apperrors.NewGatewayError(protoID, envelope.RetType, envelope.RetMsg)
	}
	if out == nil || len(envelope.S2C) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.S2C, out); err != nil {
		return fmt.Errorf("decoding proto %d payload: %w", protoID, err)
	}
	return nil
}

// readLoop owns the socket's read side, routing replies to waiting calls.
// Unsolicited pushes are logged and dropped; this client polls rather than
// subscribing to push updates.
func (c *Conn) readLoop() {
	for {
		c.mu.RLock()
		conn := c.conn
		connected := c.connected
		c.mu.RUnlock()
		if !connected || conn == nil {
			return
		}

		header, body, err := readFrame(conn)
		if err != nil {
			c.mu.RLock()
			stillConnected := c.connected
			c.mu.RUnlock()
			if stillConnected {
				c.logger.Warn().Err(err).Msg("Gateway read failed, closing connection")
				c.Close()
			}
			return
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[header.SerialNo]
		c.pendingMu.Unlock()
		if !ok {
			c.logger.Debug().
				Uint32("proto_id", header.ProtoID).
				Uint32("serial", header.SerialNo).
				Msg("Dropping unsolicited gateway frame")
			continue
		}

		select {
		case ch <- reply{header: header, body: body}:
		default:
		}
	}
}

func (c *Conn) keepAliveLoop(interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := c.Call(ctx, ProtoKeepAlive, KeepAliveC2S{Time: time.Now().Unix()}, nil)
			cancel()
			if err != nil {
				c.logger.Warn().Err(err).Msg("Gateway keepalive failed")
			}
		}
	}
}

