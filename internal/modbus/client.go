package modbus

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Client is a minimal Modbus TCP master for relay boards.
type Client struct {
	address       string
	conn          net.Conn
	mu            sync.Mutex
	transactionID uint16
	timeout       time.Duration
}

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = time.Second

func NewClient(address string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		address: address,
		timeout: timeout,
	}
}

// Connect opens the TCP connection if it is not open yet.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.conn = conn
	return nil
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// SendFrame sends a request and waits for the matching response. A failed
// exchange drops the connection so the next call reconnects.
func (c *Client) SendFrame(ctx context.Context, request *Frame) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.transactionID++
	request.TransactionID = c.transactionID

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)

	response, err := c.exchange(request)
	if err == nil && response.TransactionID != request.TransactionID {
		// A late reply is still in the stream; resync by reconnecting.
		err = fmt.Errorf("transaction ID mismatch: expected %d, got %d",
			request.TransactionID, response.TransactionID)
	}
	if err != nil {
		c.conn.Close()
		c.conn = nil
		return nil, err
	}

	return response, nil
}

func (c *Client) exchange(request *Frame) (*Frame, error) {
	if _, err := c.conn.Write(request.Encode()); err != nil {
		return nil, fmt.Errorf("write failed: %w", err)
	}

	header := make([]byte, 6)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	length := int(header[4])<<8 | int(header[5])
	if length < 2 || length > 254 {
		return nil, fmt.Errorf("invalid frame length %d", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	response, err := DecodeFrame(append(header, body...))
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return response, nil
}

// WriteSingleCoil switches one coil.
func (c *Client) WriteSingleCoil(ctx context.Context, unitID uint8, addr uint16, on bool) error {
	request := WriteSingleCoilRequest(0, unitID, addr, on)

	response, err := c.SendFrame(ctx, request)
	if err != nil {
		return err
	}

	return response.CheckWriteResponse(request)
}

// WriteMultipleCoils switches a contiguous run of coils in one exchange.
func (c *Client) WriteMultipleCoils(ctx context.Context, unitID uint8, start uint16, values []bool) error {
	if len(values) == 0 || len(values) > maxCoilsPerWrite {
		return fmt.Errorf("invalid coil count %d", len(values))
	}
	request := WriteMultipleCoilsRequest(0, unitID, start, values)

	response, err := c.SendFrame(ctx, request)
	if err != nil {
		return err
	}

	return response.CheckWriteResponse(request)
}
