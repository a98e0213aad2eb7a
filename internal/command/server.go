package command

import (
	"bufio"
	"net"
	"time"
)

// pendingRequest is one parsed-or-unparsed line waiting for the main
// loop thread to dispatch it, paired with a channel the owning
// connection goroutine blocks on for the reply.
type pendingRequest struct {
	line    string
	replyCh chan string
}

// Server accepts operator connections and queues their lines for
// dispatch. Connections are serviced on their own goroutines (so a slow
// or silent client cannot stall accept or other clients), but the
// mutation of ServerState happens only inside PollOnce, called from the
// frame loop's single poll step: the command dispatcher runs only
// inside the single-threaded poll on the main thread.
type Server struct {
	ln       net.Listener
	registry *ClientRegistry
	incoming chan pendingRequest
	disp     *Dispatcher
}

// Listen starts accepting connections on addr (default port 915).
func Listen(addr string, disp *Dispatcher) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:       ln,
		registry: NewClientRegistry(),
		incoming: make(chan pendingRequest, 16),
		disp:     disp,
	}
	go s.acceptLoop()
	return s, nil
}

// Clients returns the current connection registry, in connection order.
func (s *Server) Clients() []ClientRecord {
	return s.registry.Snapshot()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	key := conn.RemoteAddr().String()
	host, _, _ := net.SplitHostPort(key)
	s.registry.Add(key, ClientRecord{RemoteIP: host, Hostname: host, ConnectedAt: time.Now()})
	defer func() {
		s.registry.Remove(key)
		conn.Close()
	}()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		replyCh := make(chan string, 1)
		s.incoming <- pendingRequest{line: line, replyCh: replyCh}
		reply, ok := <-replyCh
		if !ok {
			return
		}
		if reply == "" {
			// disconnect word: close quietly, no reply line.
			return
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

// PollOnce drains and dispatches queued operator lines for up to
// timeout ("Service the command server for at most
// SOCKSERV_POLL_INTERVAL"). It returns once the timeout elapses or no
// request arrives within it, whichever comes first.
func (s *Server) PollOnce(timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case req := <-s.incoming:
			reply, closeConn := s.disp.Dispatch(req.line)
			if closeConn {
				req.replyCh <- ""
			} else {
				req.replyCh <- reply
			}
		case <-deadline:
			return
		}
	}
}
