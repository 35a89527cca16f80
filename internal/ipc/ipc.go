// Package ipc is the local control socket: one JSON request and one JSON
// reply per connection over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	CmdTrigger        = "trigger"
	CmdExec           = "exec"
	CmdSay            = "say"
	CmdReminders      = "reminders"
	CmdCancelReminder = "cancel-reminder"
)

const connTimeout = 30 * time.Second

func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "terminator.sock")
}

type ControlMessage struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

type Reply struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

func Fail(format string, args ...any) Reply {
	return Reply{Error: fmt.Sprintf(format, args...)}
}

type Handler func(ctx context.Context, msg ControlMessage) Reply

type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	logger  *log.Logger
	conns   sync.WaitGroup
}

// Listen binds the socket, replacing a stale one left by a previous run.
func Listen(path string, handler Handler, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Server{path: path, ln: ln, handler: handler, logger: logger}, nil
}

// Serve accepts connections until ctx is cancelled, then waits for the
// in-flight ones.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	defer func() {
		s.conns.Wait()
		os.Remove(s.path)
	}()

	s.logger.Info("control socket listening", "path", s.path)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("control accept failed", "err", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		s.logger.Debug("bad control message", "err", err)
		json.NewEncoder(conn).Encode(Fail("decode: %v", err))
		return
	}

	s.logger.Debug("control message", "cmd", msg.Cmd, "args", msg.Args)
	reply := s.handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.logger.Warn("control reply failed", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand sends one message to the daemon and waits for its reply. A
// reply carrying an error is returned as a Go error as well.
func SendCommand(ctx context.Context, path string, msg ControlMessage) (Reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(connTimeout)
	}
	conn.SetDeadline(deadline)

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send %s: %w", msg.Cmd, err)
	}
	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
