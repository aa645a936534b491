package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// AppQueries is the daemon state the server exposes. Thread safety is the
// implementor's responsibility.
type AppQueries interface {
	Search(query string, limit int) SearchResult
	Lookup(ctx context.Context, query string, limit int) (SearchResult, error)
	Get(title string) GetResult
	Stats() StatsResult
	Health() HealthResult
	Remove(title string) RemoveResult
	Clear() ClearResult
	Stale(maxAge time.Duration, remove bool) StaleResult
	Save(ctx context.Context) (SaveResult, error)
	Ingest(ctx context.Context, params IngestParams) (IngestResult, error)
}

// Server is the daemon that listens on a Unix socket and serves cache requests.
type Server struct {
	queries  AppQueries
	listener net.Listener
	sockPath string

	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by queries.
func NewServer(queries AppQueries, sockPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		queries:    queries,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first: if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket, remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, cancels in-flight lookups and ingests, waits
// for connections to drain and removes the socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("marshal socket response", "id", resp.ID, "error", err)
		data, _ = json.Marshal(Response{ID: resp.ID, Error: "internal error"})
	}
	data = append(data, '\n')
	conn.Write(data)
}

func (s *Server) handleRequest(req Request) Response {
	if req.Method == MethodShutdown {
		return Response{ID: req.ID, Result: struct{}{}}
	}
	if s.queries == nil {
		return Response{ID: req.ID, Error: "daemon not ready"}
	}

	switch req.Method {
	case MethodSearch:
		return s.handleSearch(req)
	case MethodLookup:
		return s.handleLookup(req)
	case MethodGet:
		return s.handleGet(req)
	case MethodStats:
		return Response{ID: req.ID, Result: s.queries.Stats()}
	case MethodHealth:
		return Response{ID: req.ID, Result: s.queries.Health()}
	case MethodRemove:
		return s.handleRemove(req)
	case MethodClear:
		return Response{ID: req.ID, Result: s.queries.Clear()}
	case MethodStale:
		return s.handleStale(req)
	case MethodSave:
		return s.handleSave(req)
	case MethodIngest:
		return s.handleIngest(req)
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into dst.
func decodeParams(req Request, dst any) error {
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, dst)
}

func (s *Server) handleSearch(req Request) Response {
	var params SearchParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid search params"}
	}
	return Response{ID: req.ID, Result: s.queries.Search(params.Query, params.Limit)}
}

func (s *Server) handleLookup(req Request) Response {
	var params SearchParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid lookup params"}
	}
	result, err := s.queries.Lookup(s.ctx, params.Query, params.Limit)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleGet(req Request) Response {
	var params TitleParams
	if err := decodeParams(req, &params); err != nil || params.Title == "" {
		return Response{ID: req.ID, Error: "invalid get params"}
	}
	return Response{ID: req.ID, Result: s.queries.Get(params.Title)}
}

func (s *Server) handleRemove(req Request) Response {
	var params TitleParams
	if err := decodeParams(req, &params); err != nil || params.Title == "" {
		return Response{ID: req.ID, Error: "invalid remove params"}
	}
	return Response{ID: req.ID, Result: s.queries.Remove(params.Title)}
}

func (s *Server) handleStale(req Request) Response {
	var params StaleParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid stale params"}
	}
	maxAge, err := time.ParseDuration(params.MaxAge)
	if err != nil || maxAge < 0 {
		return Response{ID: req.ID, Error: fmt.Sprintf("invalid max_age %q", params.MaxAge)}
	}
	return Response{ID: req.ID, Result: s.queries.Stale(maxAge, params.Remove)}
}

func (s *Server) handleSave(req Request) Response {
	result, err := s.queries.Save(s.ctx)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleIngest(req Request) Response {
	var params IngestParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid ingest params"}
	}
	result, err := s.queries.Ingest(s.ctx, params)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}
