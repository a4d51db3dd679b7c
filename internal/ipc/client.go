package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dialTimeout = 5 * time.Second

// Client is the peer side of the IPC bus: the control surface and the
// (out of scope) integration process both dial the daemon's socket with
// one of these.
type Client struct {
	sockPath string
	log      *logrus.Entry

	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

// NewClient constructs a Client bound to sockPath once Connect is called.
func NewClient(sockPath string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Client{sockPath: sockPath, log: log.WithField("component", "ipc_client")}
}

// Connect dials the server. It is idempotent while already connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := dial(ctx, c.sockPath)
	if err != nil {
		return fmt.Errorf("ipc: connect: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true
	c.log.Info("connected to ipc server")
	return nil
}

// Disconnect closes the connection. It is idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	err := c.conn.Close()
	c.connected = false
	c.log.Info("disconnected from ipc server")
	return err
}

// SendMessage writes msg as a single newline-terminated JSON line.
func (c *Client) SendMessage(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrPeerDisconnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: marshal message: %w", err)
	}
	data = append(data, '\n')

	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("ipc: write message: %w", err)
	}
	return nil
}

// ReceiveMessage blocks for one framed message from the server.
func (c *Client) ReceiveMessage() (*Message, error) {
	c.mu.Lock()
	reader := c.reader
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, ErrPeerDisconnected
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, ErrPeerDisconnected
		}
		return nil, fmt.Errorf("ipc: read message: %w", err)
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// StartListening runs handler for every inbound message on a background
// goroutine until the connection closes or errs.
func (c *Client) StartListening(handler func(Message) error) {
	go func() {
		for {
			c.mu.Lock()
			connected := c.connected
			c.mu.Unlock()
			if !connected {
				return
			}

			msg, err := c.ReceiveMessage()
			if err != nil {
				if err != ErrPeerDisconnected {
					c.log.WithError(err).Warn("receive failed")
				}
				return
			}

			if err := handler(*msg); err != nil {
				c.log.WithError(err).WithField("type", msg.Type).Error("handler failed")
			}
		}
	}()
}
