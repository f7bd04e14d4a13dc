package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skdltmxn/pdbtypes/engine"
)

// JSON-RPC error codes for rejected calls.
const (
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603
)

// Error is a protocol-level failure; the framework encodes it for the
// client. Engine failures are reported as tool results instead.
type Error struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

func newError(code int, message string, data interface{}) error {
	return &Error{Code: code, Message: message, Data: data}
}

func (s *Server) handleLoadPDB(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	ev, err := s.call(ctx, engine.LoadPDB{Path: path})
	if err != nil {
		return s.failure(err)
	}
	loaded, ok := ev.(engine.PDBLoaded)
	if !ok {
		return nil, unexpected(ev)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":         loaded.Path,
		"architecture": loaded.Architecture,
		"type_count":   loaded.TypeCount,
		"generation":   loaded.Generation,
	})), nil
}

func (s *Server) handleListTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		if request.Params.Arguments != nil {
			return nil, newError(ErrorCodeInvalidParams, "invalid arguments", nil)
		}
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 {
		return nil, newError(ErrorCodeInvalidParams, "limit must not be negative", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	ev, err := s.call(ctx, engine.UpdateTypeFilter{
		Pattern:         getStringDefault(args, "filter", ""),
		CaseInsensitive: getBoolDefault(args, "case_insensitive", s.cfg.CaseInsensitive),
		UseRegex:        getBoolDefault(args, "use_regex", s.cfg.UseRegex),
	})
	if err != nil {
		return s.failure(err)
	}
	filtered, ok := ev.(engine.FilteredTypesUpdated)
	if !ok {
		return nil, unexpected(ev)
	}

	names := make([]string, 0, len(filtered.Types))
	for _, t := range filtered.Types {
		if limit > 0 && len(names) == limit {
			break
		}
		names = append(names, t.Name)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total": len(filtered.Types),
		"types": names,
	})), nil
}

func (s *Server) handleReconstructType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	ev, err := s.call(ctx, engine.ReconstructTypeByName{
		Name: name,
		Options: engine.ReconstructOptions{
			PrintHeader:           getBoolDefault(args, "print_header", s.cfg.Dump.PrintHeader),
			PrintDependencies:     getBoolDefault(args, "print_dependencies", s.cfg.Dump.PrintDependencies),
			PrintAccessSpecifiers: getBoolDefault(args, "print_access_specifiers", s.cfg.Dump.PrintAccessSpecifiers),
		},
	})
	if err != nil {
		return s.failure(err)
	}
	rec, ok := ev.(engine.ReconstructedTypeUpdated)
	if !ok {
		return nil, unexpected(ev)
	}
	return mcp.NewToolResultText(rec.Text), nil
}

// failure turns an engine error into a tool result the model can read;
// anything else aborts the call.
func (s *Server) failure(err error) (*mcp.CallToolResult, error) {
	var e *engine.Error
	if errors.As(err, &e) {
		s.log.Debug("tool call failed", "kind", e.Kind, "detail", e.Detail)
		return mcp.NewToolResultError(e.Error()), nil
	}
	return nil, newError(ErrorCodeInternalError, "engine unavailable", map[string]interface{}{
		"error": err.Error(),
	})
}

func unexpected(ev engine.Event) error {
	return newError(ErrorCodeInternalError, fmt.Sprintf("unexpected event %T", ev), nil)
}

func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
