package main

import (
	"context"
	"fmt"

	"github.com/skdltmxn/pdbtypes/engine"
)

// session drives an engine the way an interactive frontend would: submit a
// command, then wait for the event that answers it.
type session struct {
	engine *engine.Engine
	events *engine.ChannelSink
}

// openSession starts an engine and loads path into it.
func openSession(ctx context.Context, path string) (*session, error) {
	events := engine.NewChannelSink()
	s := &session{
		engine: engine.New(events, engine.WithLogger(logger), engine.WithTool(toolName, version)),
		events: events,
	}
	if _, err := s.call(ctx, engine.LoadPDB{Path: path}); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load PDB: %w", err)
	}
	return s, nil
}

func (s *session) call(ctx context.Context, cmd engine.Command) (engine.Event, error) {
	seq, err := s.engine.Submit(cmd)
	if err != nil {
		return nil, err
	}
	return s.events.Await(ctx, seq)
}

func (s *session) close() {
	_ = s.engine.Close()
	s.events.Close()
}
