// Package mcpserver exposes the type browser engine as an MCP server on
// stdio, so an assistant can load a PDB, search it and reconstruct types.
package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/skdltmxn/pdbtypes/engine"
)

// ServerName is the name announced to MCP clients.
const ServerName = "pdbtypes"

// Config configures a Server.
type Config struct {
	// Version is announced to clients and printed in reconstruction headers.
	Version string

	// Dump holds the reconstruction options used when a tool call leaves
	// them unset.
	Dump engine.ReconstructOptions

	// List holds the filter options used when a tool call leaves them unset.
	CaseInsensitive bool
	UseRegex        bool

	Logger *slog.Logger
}

// Server owns one engine and the MCP tool surface over it.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	events *engine.ChannelSink
	cfg    Config
	log    *slog.Logger

	// mu serializes tool calls; each call waits for its own event on the
	// shared sink.
	mu sync.Mutex
}

// New starts an engine and registers the tools.
func New(cfg Config, opts ...engine.Option) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	events := engine.NewChannelSink()
	opts = append([]engine.Option{
		engine.WithLogger(cfg.Logger),
		engine.WithTool(ServerName, cfg.Version),
	}, opts...)

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, cfg.Version),
		engine: engine.New(events, opts...),
		events: events,
		cfg:    cfg,
		log:    cfg.Logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol over in and out until ctx is done or in is
// exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info("mcp server listening", "name", ServerName, "version", s.cfg.Version)
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// Close stops the engine. Calls still waiting for a reply fail.
func (s *Server) Close() error {
	err := s.engine.Close()
	s.events.Close()
	return err
}

func (s *Server) registerTools() {
	s.mcp.AddTool(loadPDBTool(), s.handleLoadPDB)
	s.mcp.AddTool(listTypesTool(), s.handleListTypes)
	s.mcp.AddTool(reconstructTypeTool(), s.handleReconstructType)
}

// call submits cmd and waits for the event it produces.
func (s *Server) call(ctx context.Context, cmd engine.Command) (engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.engine.Submit(cmd)
	if err != nil {
		return nil, err
	}
	return s.events.Await(ctx, seq)
}
