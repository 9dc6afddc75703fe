// Package server serves the htkv line protocol on a Unix domain socket.
//
// Clients are served strictly one at a time: the accept loop hands each
// connection to the session handler and only calls Accept again once that
// client has disconnected. Later clients wait in the listen backlog.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/heysubinoy/htkv/internal/protocol"
	"github.com/heysubinoy/htkv/pkg/kv"
)

// socketPerm is applied to the socket file right after bind.
const socketPerm os.FileMode = 0o600

// Options tunes a Server. Zero timeouts disable the corresponding deadline.
type Options struct {
	SocketPath   string
	MaxLineBytes int
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
}

// Stats counts sessions and requests handled since start.
type Stats struct {
	Sessions       uint64 `json:"sessions"`
	Requests       uint64 `json:"requests"`
	ProtocolErrors uint64 `json:"protocol_errors"`
	InternalErrors uint64 `json:"internal_errors"`
}

// Server wraps a kv.Store and exposes it over the line protocol.
type Server struct {
	store  kv.Store
	opts   Options
	logger hclog.Logger

	sessions       atomic.Uint64
	requests       atomic.Uint64
	protocolErrors atomic.Uint64
	internalErrors atomic.Uint64
}

// New creates a server for store. It does not listen until ListenAndServe
// or Serve is called.
func New(store kv.Store, opts Options, logger hclog.Logger) *Server {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = protocol.DefaultMaxLineBytes
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// Listen binds a Unix stream socket at path, replacing a stale socket file
// left by an earlier run, and restricts it to the owner.
func Listen(path string) (net.Listener, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, socketPerm); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return ln, nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("refusing to replace %s: not a socket", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	return nil
}

// ListenAndServe listens on the configured socket path and serves until ctx
// is cancelled. The listener is closed and the socket file removed on every
// return path.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := Listen(s.opts.SocketPath)
	if err != nil {
		return err
	}
	defer func() {
		ln.Close()
		if err := os.Remove(s.opts.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove socket file", "path", s.opts.SocketPath, "error", err)
		}
	}()

	s.logger.Info("listening", "path", s.opts.SocketPath)
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln one at a time until ctx is cancelled or
// the listener fails. It returns nil on cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.serveConn(ctx, conn)
	}
}

// serveConn runs one session to completion. The connection is closed on
// every exit path, including server shutdown.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := s.sessions.Add(1)
	logger := s.logger.With("session", id)
	logger.Debug("client connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("error closing connection", "error", err)
		}
	}()

	r := bufio.NewReader(conn)
	for {
		if s.opts.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)); err != nil {
				logger.Warn("error setting read deadline", "error", err)
				return
			}
		}

		var resp string
		line, err := protocol.ReadLine(r, s.opts.MaxLineBytes)
		switch {
		case err == nil:
			resp = s.Handle(line)
		case errors.Is(err, protocol.ErrLineTooLong):
			s.requests.Add(1)
			s.protocolErrors.Add(1)
			resp = protocol.RespLineTooLong
		case errors.Is(err, io.EOF):
			logger.Debug("client disconnected")
			return
		default:
			var ne net.Error
			switch {
			case ctx.Err() != nil:
				logger.Debug("session closed by shutdown")
			case errors.As(err, &ne) && ne.Timeout():
				logger.Info("closing idle session", "idle_timeout", s.opts.IdleTimeout)
			default:
				logger.Warn("read failed", "error", err)
			}
			return
		}

		if s.opts.WriteTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
				logger.Warn("error setting write deadline", "error", err)
				return
			}
		}
		if err := protocol.WriteResponse(conn, resp); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

// Handle executes one request line against the store and returns the
// response line without its trailing newline.
func (s *Server) Handle(line string) string {
	s.requests.Add(1)

	req := protocol.Parse(line)
	switch req.Kind {
	case protocol.KindSet:
		if err := s.store.Set(req.Key, req.Value); err != nil {
			s.internalErrors.Add(1)
			s.logger.Error("set failed", "key", req.Key, "error", err)
			return protocol.RespInternal
		}
		return protocol.RespOK

	case protocol.KindGet:
		value, ok := s.store.Get(req.Key)
		if !ok {
			return protocol.RespNotFound
		}
		return value

	default:
		s.protocolErrors.Add(1)
		return protocol.ErrorResponse(req.Err)
	}
}

// Stats returns a snapshot of the session and request counters.
func (s *Server) Stats() Stats {
	return Stats{
		Sessions:       s.sessions.Load(),
		Requests:       s.requests.Load(),
		ProtocolErrors: s.protocolErrors.Load(),
		InternalErrors: s.internalErrors.Load(),
	}
}
