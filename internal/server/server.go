// Package server owns the TCP acceptor loop and the process lifecycle:
// binding a listener, handing each connection to the worker pool,
// parsing one HTTP/1.1 request per connection and writing back exactly
// one response, then closing it — this server never keeps a connection
// alive across requests.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/handler"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
)

// ErrServerClosed identifies a stopped server. Nothing in this package
// returns it: the acceptor loop exits without an error once Stop has
// closed the listener.
var ErrServerClosed = errors.New("server: closed")

// Closer is implemented by anything Stop must release once the
// acceptor has drained — the P2P registry, in this server's case.
type Closer interface {
	Close() error
}

// Server binds one TCP port and dispatches every accepted connection
// through Chain, using a fixed worker pool shared with the P2P
// decorator's peer fan-out.
type Server struct {
	Addr            string
	Chain           *handler.Chain
	Pool            *Pool
	Logger          *slog.Logger
	StopWait        time.Duration
	Backend         Closer

	mu       sync.Mutex
	listener net.Listener
	closing  chan struct{}
	closed   atomic.Bool
	acceptWg sync.WaitGroup
}

// Start binds the listener and begins accepting connections in the
// background. It returns once the listener is bound (so a caller can
// rely on the port being ready immediately after Start returns), not
// once the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.closing = make(chan struct{})
	s.mu.Unlock()

	s.acceptWg.Add(1)
	go s.acceptLoop(ln, false)
	return nil
}

// BoundAddr returns the address the listener is actually bound to,
// which differs from Addr whenever Addr requests an ephemeral port
// (e.g. ":0"). It is only valid after Start has returned successfully.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// acceptLoop is the accept/dispatch loop: an exponential retry backoff
// on transient Accept errors, capped at one second, and a clean exit
// once Stop has closed the listener. A panic restarts the loop once;
// a panic in the restarted loop (restarted is true) ends it.
func (s *Server) acceptLoop(ln net.Listener, restarted bool) {
	defer s.acceptWg.Done()
	defer func() {
		if r := recover(); r != nil {
			if restarted {
				s.Logger.Error("accept loop panicked again, not restarting", "recover", r)
				return
			}
			s.Logger.Error("accept loop panicked, restarting once", "recover", r)
			s.acceptWg.Add(1)
			go s.acceptLoop(ln, true)
		}
	}()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.Logger.Warn("accept error, retrying", "delay", tempDelay, "error", err)
				time.Sleep(tempDelay)
				continue
			}
			s.Logger.Error("accept loop exiting", "error", err)
			return
		}
		tempDelay = 0

		task := func() { s.serveConn(conn) }
		if err := s.Pool.Submit(task); err != nil {
			task()
		}
	}
}

// serveConn parses exactly one request, dispatches it through the
// chain, and writes back exactly one response before closing conn.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Warn("serving connection panicked", "recover", r)
		}
	}()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	reader := bufio.NewReader(conn)
	req, err := httpcodec.ParseRequest(reader)
	if err != nil {
		resp := httpcodec.NewResponse(apperr.StatusOf(err)).
			WithHeader("Content-Type", "text/plain; charset=UTF-8").
			WithBody(err.Error())
		writer := bufio.NewWriter(conn)
		_ = httpcodec.Write(writer, resp, httpcodec.ModeStandard)
		return
	}

	resp := s.Chain.Dispatch(context.Background(), req)
	writer := bufio.NewWriter(conn)
	if writeErr := httpcodec.Write(writer, resp, httpcodec.ModeStandard); writeErr != nil {
		s.Logger.Debug("writing response failed", "error", writeErr)
	}
}

// Stop signals the acceptor to stop, closes the listener, waits up to
// StopWait for in-flight work to drain, and finally closes Backend.
// Calling Stop more than once is a no-op after the first call.
func (s *Server) Stop() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	close(s.closing)
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.acceptWg.Wait()

	s.Pool.Close()
	done := make(chan struct{})
	timer := time.AfterFunc(s.StopWait, func() { close(done) })
	defer timer.Stop()
	if !s.Pool.Wait(done) {
		s.Logger.Warn("stop wait elapsed before every worker drained")
	}

	if s.Backend != nil {
		return s.Backend.Close()
	}
	return nil
}
