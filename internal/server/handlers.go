package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
	"github.com/ironsheep/image-features-mcp/internal/match"
	"github.com/ironsheep/image-features-mcp/internal/render"
)

var (
	errUnknownTool   = errors.New("unknown tool")
	errInvalidParams = errors.New("invalid params")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "features_detect", "features_match").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000,
// malformed arguments -32602 and unknown tools -32601.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	switch {
	case errors.Is(err, errUnknownTool):
		return s.errorResponse(req.ID, codeMethodNotFound, "Tool not found", err.Error())
	case errors.Is(err, errInvalidParams):
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	case err != nil:
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals and validates arguments
//  2. Loads images from cache as needed
//  3. Runs the engine operation against the session
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Feature Session
	case "features_detect":
		return s.handleFeaturesDetect(args)
	case "features_set":
		return s.handleFeaturesSet(args)
	case "features_match":
		return s.handleFeaturesMatch(args)
	case "features_reset":
		return s.handleFeaturesReset()
	case "features_state":
		return s.handleFeaturesState()

	// Visualization
	case "features_render":
		return s.handleFeaturesRender(args)
	case "features_render_matches":
		return s.handleFeaturesRenderMatches(args)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
// An empty data string is left out of the response.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	mcpErr := &MCPError{Code: code, Message: message}
	if data != "" {
		mcpErr.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   mcpErr,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. A missing arguments object is treated
// as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func parseRoleKind(role, kind string) (feature.Role, feature.Kind, error) {
	r, err := feature.ParseRole(role)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	k, err := parseKind(kind)
	if err != nil {
		return 0, 0, err
	}
	return r, k, nil
}

func parseKind(kind string) (feature.Kind, error) {
	k, err := feature.ParseKind(kind)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return k, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("load image", err)
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, s.engine.Fail("load image", err)
	}
	return info, nil
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("image dimensions", err)
	}
	dims, err := imaging.GetDimensions(s.cache, a.Path)
	if err != nil {
		return nil, s.engine.Fail("image dimensions", err)
	}
	return dims, nil
}

// === Feature Session Handlers ===

type featuresDetectArgs struct {
	Path string `json:"path"`
	Role string `json:"role"`
	Kind string `json:"kind"`
}

// FeaturesResult is returned by features_detect and features_set.
type FeaturesResult struct {
	Role    string           `json:"role"`
	Kind    string           `json:"kind"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records,omitempty"`
}

func (s *Server) handleFeaturesDetect(args json.RawMessage) (interface{}, error) {
	var a featuresDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("detect", err)
	}
	role, kind, err := parseRoleKind(a.Role, a.Kind)
	if err != nil {
		return nil, s.engine.Fail("detect", err)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, s.engine.Fail(fmt.Sprintf("detect %s %s", role, kind), err)
	}
	records, err := s.engine.DetectAndCompute(role, kind, img)
	if err != nil {
		return nil, err
	}
	return &FeaturesResult{
		Role:    role.String(),
		Kind:    kind.String(),
		Count:   len(records),
		Records: records,
	}, nil
}

type featuresSetArgs struct {
	Role    string           `json:"role"`
	Kind    string           `json:"kind"`
	Records []map[string]any `json:"records"`
}

func (s *Server) handleFeaturesSet(args json.RawMessage) (interface{}, error) {
	var a featuresSetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("set", err)
	}
	role, kind, err := parseRoleKind(a.Role, a.Kind)
	if err != nil {
		return nil, s.engine.Fail("set", err)
	}

	n, err := s.engine.SetRecords(role, kind, a.Records)
	if err != nil {
		return nil, err
	}
	return &FeaturesResult{
		Role:  role.String(),
		Kind:  kind.String(),
		Count: n,
	}, nil
}

type featuresKindArgs struct {
	Kind string `json:"kind"`
}

// MatchToolResult is returned by features_match.
type MatchToolResult struct {
	Kind            string                 `json:"kind"`
	Count           int                    `json:"count"`
	Correspondences []match.Correspondence `json:"correspondences"`
	Area            int                    `json:"area"`
	ExecutionMS     float64                `json:"execution_ms"`
}

func (s *Server) handleFeaturesMatch(args json.RawMessage) (interface{}, error) {
	var a featuresKindArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("match", err)
	}
	kind, err := parseKind(a.Kind)
	if err != nil {
		return nil, s.engine.Fail("match", err)
	}

	result, err := s.engine.Match(kind)
	if err != nil {
		return nil, err
	}
	return &MatchToolResult{
		Kind:            kind.String(),
		Count:           len(result.Correspondences),
		Correspondences: result.Correspondences,
		Area:            result.Area,
		ExecutionMS:     milliseconds(result.Elapsed.Seconds()),
	}, nil
}

// StateResult is returned by features_state and features_reset.
type StateResult struct {
	// Slots holds the record count per role, then per kind.
	Slots map[string]map[string]int `json:"slots"`
	Area  int                       `json:"area"`
	Error string                    `json:"error"`
}

func (s *Server) handleFeaturesReset() (interface{}, error) {
	s.engine.Reset()
	return s.state(), nil
}

func (s *Server) handleFeaturesState() (interface{}, error) {
	return s.state(), nil
}

func (s *Server) state() *StateResult {
	sess := s.engine.Session()
	slots := make(map[string]map[string]int, 2)
	for _, role := range []feature.Role{feature.RoleQuery, feature.RoleTrain} {
		slots[role.String()] = map[string]int{
			feature.KindPoint.String(): sess.Len(role, feature.KindPoint),
			feature.KindLine.String():  sess.Len(role, feature.KindLine),
		}
	}
	return &StateResult{
		Slots: slots,
		Area:  sess.Area(),
		Error: sess.Error(),
	}
}

// === Visualization Handlers ===

type featuresRenderArgs struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func (s *Server) handleFeaturesRender(args json.RawMessage) (interface{}, error) {
	var a featuresRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("render", err)
	}
	kind, err := parseKind(a.Kind)
	if err != nil {
		return nil, s.engine.Fail("render", err)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, s.engine.Fail(fmt.Sprintf("render %s", kind), err)
	}
	out, err := s.engine.RenderFeatures(kind, img)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(out)
}

type featuresRenderMatchesArgs struct {
	QueryPath string `json:"query_path"`
	TrainPath string `json:"train_path"`
	Kind      string `json:"kind"`
}

// RenderMatchesResult is returned by features_render_matches.
type RenderMatchesResult struct {
	*render.Encoded
	Count int `json:"count"`
	Area  int `json:"area"`
}

func (s *Server) handleFeaturesRenderMatches(args json.RawMessage) (interface{}, error) {
	var a featuresRenderMatchesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, s.engine.Fail("render matches", err)
	}
	kind, err := parseKind(a.Kind)
	if err != nil {
		return nil, s.engine.Fail("render matches", err)
	}

	op := fmt.Sprintf("render %s matches", kind)
	query, err := s.cache.Load(a.QueryPath)
	if err != nil {
		return nil, s.engine.Fail(op, fmt.Errorf("query: %w", err))
	}
	train, err := s.cache.Load(a.TrainPath)
	if err != nil {
		return nil, s.engine.Fail(op, fmt.Errorf("train: %w", err))
	}

	out, result, err := s.engine.RenderMatches(kind, query, train)
	if err != nil {
		return nil, err
	}
	encoded, err := render.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	return &RenderMatchesResult{
		Encoded: encoded,
		Count:   len(result.Correspondences),
		Area:    result.Area,
	}, nil
}

// milliseconds converts seconds to milliseconds rounded to microsecond precision.
func milliseconds(seconds float64) float64 {
	return math.Round(seconds*1e6) / 1e3
}
