// Package testing provides an in-process stub simulator speaking the
// real wire protocol, for exercising the client against scripted and
// deferred replies without a simulator install.
package testing

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/simlink/simlink/protocol"
)

// Handler processes one inbound request. reply writes a frame back to
// the same client and may be kept and called later from another
// goroutine, which is how tests script deferred completion events.
type Handler func(msg protocol.Message, reply func(protocol.Message))

// stubConn pairs a client socket with a write lock, since scripted
// replies and injected events may race for the socket.
type stubConn struct {
	sock net.Conn
	mu   sync.Mutex
}

func (c *stubConn) write(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WriteFrame(c.sock, msg)
}

// Server is a stub simulator bound to an ephemeral localhost port. It
// answers the Hello handshake by itself; everything else goes to the
// configured Handler.
type Server struct {
	ln      net.Listener
	handler Handler

	mu      sync.Mutex
	version string
	conns   []*stubConn
}

// NewServer starts a stub simulator and registers its shutdown with t.
func NewServer(t *testing.T, handler Handler) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start stub simulator: %v", err)
	}

	s := &Server{
		ln:      ln,
		handler: handler,
		version: protocol.Version,
	}
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// SetVersion overrides the protocol version announced in the Hello
// reply. Call before the client connects.
func (s *Server) SetVersion(version string) {
	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
}

// Port returns the ephemeral port the stub listens on.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// ClientConfig returns a client configuration pointed at the stub,
// with timeouts short enough for tests.
func (s *Server) ClientConfig() protocol.Config {
	cfg := protocol.DefaultConfig("127.0.0.1")
	cfg.Port = s.Port()
	cfg.DialTimeout = time.Second
	cfg.DialRetries = 2
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

// Inject writes an unsolicited message to the most recently connected
// client, emulating a simulator-driven asynchronous event.
func (s *Server) Inject(t *testing.T, msg protocol.Message) {
	t.Helper()

	s.mu.Lock()
	var conn *stubConn
	if n := len(s.conns); n > 0 {
		conn = s.conns[n-1]
	}
	s.mu.Unlock()

	if conn == nil {
		t.Fatalf("no client connected to stub simulator")
	}
	if err := conn.write(msg); err != nil {
		t.Fatalf("failed to inject %s: %v", msg.Type(), err)
	}
}

// DropClients closes every active client socket without stopping the
// listener, emulating a simulator crash mid-session.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.sock.Close()
	}
	s.conns = nil
}

// Close stops the listener and drops all clients.
func (s *Server) Close() {
	s.ln.Close()
	s.DropClients()
}

func (s *Server) acceptLoop() {
	for {
		sock, err := s.ln.Accept()
		if err != nil {
			return
		}
		conn := &stubConn{sock: sock}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.serve(conn)
	}
}

func (s *Server) serve(conn *stubConn) {
	defer conn.sock.Close()

	for {
		msg, err := protocol.ReadFrame(conn.sock)
		if err != nil {
			return
		}

		if msg.Kind() == protocol.KindHello {
			s.mu.Lock()
			version := s.version
			s.mu.Unlock()
			conn.write(protocol.Message{"type": "Hello", "protocolVersion": version})
			continue
		}

		if s.handler != nil {
			s.handler(msg, func(reply protocol.Message) {
				conn.write(reply)
			})
		}
	}
}
