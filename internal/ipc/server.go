package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// HandlerFunc processes one client->server message. An error is logged;
// it never tears down the connection.
type HandlerFunc func(clientID string, msg Message) error

// Server accepts concurrent client connections over a Unix domain socket
// (or, via paths.Layout, a Windows named pipe path) and multiplexes
// framed JSON messages.
type Server struct {
	sockPath string
	log      *logrus.Entry

	mu       sync.RWMutex
	listener net.Listener
	clients  map[string]net.Conn
	handlers map[Type]HandlerFunc
	running  bool

	wg sync.WaitGroup
}

// NewServer constructs a Server bound to sockPath once Start is called.
func NewServer(sockPath string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Server{
		sockPath: sockPath,
		log:      log.WithField("component", "ipc_server"),
		clients:  make(map[string]net.Conn),
		handlers: make(map[Type]HandlerFunc),
	}
}

// RegisterHandler sets the callback for a given message type. Registering
// again for the same type replaces the previous handler.
func (s *Server) RegisterHandler(t Type, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = h
}

// Start binds the listener and begins accepting clients in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if !strings.HasPrefix(s.sockPath, `\\.\pipe\`) {
		if err := os.MkdirAll(filepath.Dir(s.sockPath), 0o755); err != nil {
			return fmt.Errorf("%w: mkdir: %v", ErrBindFailed, err)
		}
		if err := os.Remove(s.sockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove stale socket: %v", ErrBindFailed, err)
		}
	}

	listener, err := listen(s.sockPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	s.listener = listener
	s.running = true
	s.log.WithField("path", s.sockPath).Info("ipc server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes every client connection and the listener, then waits for
// in-flight goroutines to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false

	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	s.wg.Wait()

	if !strings.HasPrefix(s.sockPath, `\\.\pipe\`) {
		os.Remove(s.sockPath)
	}

	s.log.Info("ipc server stopped")
	return nil
}

// SendMessage broadcasts msg to every connected client. It is not an
// error for no clients to be connected; the message is simply dropped.
func (s *Server) SendMessage(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: marshal outgoing message: %w", err)
	}
	data = append(data, '\n')

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.clients) == 0 {
		s.log.WithField("type", msg.Type).Debug("no clients connected, message dropped")
		return nil
	}

	for id, conn := range s.clients {
		if _, err := conn.Write(data); err != nil {
			s.log.WithError(err).WithField("client", id).Warn("failed to send message")
		}
	}
	return nil
}

// SendTo writes msg to a single connected client, identified by the
// clientID passed to its HandlerFunc. Used for request/reply exchanges
// (control_status) where a broadcast would leak the reply to every peer.
func (s *Server) SendTo(clientID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: marshal outgoing message: %w", err)
	}
	data = append(data, '\n')

	s.mu.RLock()
	conn, ok := s.clients[clientID]
	s.mu.RUnlock()

	if !ok {
		return ErrPeerDisconnected
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("ipc: write to client %s: %w", clientID, err)
	}
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			running := s.running
			s.mu.RUnlock()
			if !running {
				return
			}
			s.log.WithError(err).Error("accept failed")
			continue
		}

		clientID := newID()
		s.mu.Lock()
		s.clients[clientID] = conn
		s.mu.Unlock()

		s.log.WithField("client", clientID).Info("client connected")

		s.wg.Add(1)
		go s.handleClient(clientID, conn)
	}
}

func (s *Server) handleClient(clientID string, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, clientID)
		s.mu.Unlock()
		s.log.WithField("client", clientID).Info("client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.log.WithError(err).WithField("client", clientID).Warn("malformed message")
			continue
		}

		s.mu.RLock()
		handler, ok := s.handlers[msg.Type]
		s.mu.RUnlock()

		if !ok {
			s.log.WithField("type", msg.Type).Debug("no handler registered")
			continue
		}
		if err := handler(clientID, msg); err != nil {
			s.log.WithError(err).WithField("type", msg.Type).Error("handler failed")
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.WithError(err).WithField("client", clientID).Warn("read error")
	}
}
