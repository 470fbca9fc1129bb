package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/runtimepath"
)

const injectTimeout = 2 * time.Second

// Server accepts client connections on a unix socket, injects their commands
// into the event loop's command channel and answers queries from the latest
// published snapshot. It never touches the model directly.
type Server struct {
	socketPath string
	listener   net.Listener
	commands   chan<- core.Command
	logger     *slog.Logger

	statusMu  sync.RWMutex
	status    core.Status
	hasStatus bool

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates an IPC server. An empty socketPath resolves the standard
// runtime location.
func NewServer(socketPath string, commands chan<- core.Command, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		commands:   commands,
		logger:     logger,
	}, nil
}

// PublishStatus stores the loop's latest snapshot. Wire it to Loop.Publish.
func (s *Server) PublishStatus(st core.Status) {
	s.statusMu.Lock()
	s.status = st
	s.hasStatus = true
	s.statusMu.Unlock()
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc.listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("ipc.accept", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("ipc.read", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("ipc.marshal", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("ipc.write", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandRun:
		return s.handleRun(req.Payload)
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetWindows:
		st, resp := s.snapshot()
		if resp != nil {
			return resp
		}
		out, _ := NewOKResponse(st.Windows)
		return out
	case CommandGetTags:
		st, resp := s.snapshot()
		if resp != nil {
			return resp
		}
		out, _ := NewOKResponse(st.Tags)
		return out
	case CommandGetScreens:
		st, resp := s.snapshot()
		if resp != nil {
			return resp
		}
		out, _ := NewOKResponse(st.Screens)
		return out
	case CommandPing:
		resp, _ := NewOKResponse(nil)
		return resp
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleRun validates a command and hands it to the event loop. Validation
// covers shape only; semantic rejection happens inside the loop and is
// reported there, not to this client.
func (s *Server) handleRun(payload json.RawMessage) *Response {
	var run RunPayload
	if err := json.Unmarshal(payload, &run); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid run payload: %v", err))
	}

	cmd, err := core.ParseCommand(run.Name, run.Arg)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	select {
	case s.commands <- cmd:
	case <-time.After(injectTimeout):
		return NewErrorResponse("event loop is not accepting commands")
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	st, resp := s.snapshot()
	if resp != nil {
		return resp
	}
	out, _ := NewOKResponse(st)
	return out
}

func (s *Server) snapshot() (core.Status, *Response) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if !s.hasStatus {
		return core.Status{}, NewErrorResponse("daemon has not completed its first turn yet")
	}
	return s.status, nil
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
