// Package server implements the MCP (Model Context Protocol) server for feature
// detection and matching.
//
// This package provides a JSON-RPC 2.0 server that exposes one comparison
// session through the MCP protocol: a client detects or loads query and train
// features, matches them and inspects the result, with optional rendered
// images for debugging.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Feature Session:
//   - features_detect: Detect points or lines on an image into the query or train set
//   - features_set: Replace a feature set with serialized records
//   - features_match: Match query against train, report correspondences and area
//   - features_reset: Clear all feature sets
//   - features_state: Report slot counts, area and last error
//
// Visualization:
//   - features_render: Draw detected features on an image
//   - features_render_matches: Draw correspondences between two images
//
// # Session
//
// Every feature tool runs against the single session owned by the server's
// engine. Requests are handled one at a time, so the session needs no locking.
// Each tool publishes its outcome on the session: features_state reports the
// message of the last failure, cleared again by the next success.
//
// # Image Caching
//
// Images are cached by path and reused across tool calls, so a query image
// loaded for features_detect is not decoded again by features_render_matches.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (malformed arguments,
//     unknown role or kind) or -32601 (unknown method or tool)
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	engine, err := session.NewEngine(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(engine, logger, version)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
