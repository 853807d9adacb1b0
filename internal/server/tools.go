package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var (
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
	roleProperty = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"query", "train"},
		"description": "Which side of the comparison the features belong to",
	}
	kindProperty = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"point", "line"},
		"description": "Feature kind: point keypoints (ORB) or line keylines",
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for later feature tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Feature Session
		{
			Name:        "features_detect",
			Description: "Detect point or line features on an image, compute their descriptors and store them as the query or train set. Returns the serialized feature records.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"role": roleProperty,
					"kind": kindProperty,
				},
				"required": []string{"path", "role", "kind"},
			},
		},
		{
			Name:        "features_set",
			Description: "Replace the query or train feature set with previously serialized records (as returned by features_detect). Either all records are stored or none.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"role": roleProperty,
					"kind": kindProperty,
					"records": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "object"},
						"description": "Serialized feature records",
					},
				},
				"required": []string{"role", "kind", "records"},
			},
		},
		{
			Name:        "features_match",
			Description: "Match the stored query features against the stored train features of one kind. Returns the correspondences sorted by distance and the area of the matched region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kind": kindProperty,
				},
				"required": []string{"kind"},
			},
		},
		{
			Name:        "features_reset",
			Description: "Clear all stored feature sets, the matched area and the last error.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "features_state",
			Description: "Report the number of stored features per role and kind, the last matched area and the last error message.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Visualization
		{
			Name:        "features_render",
			Description: "Detect features on an image and return the image with the features drawn, as base64-encoded PNG. Stored feature sets are not changed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"kind": kindProperty,
				},
				"required": []string{"path", "kind"},
			},
		},
		{
			Name:        "features_render_matches",
			Description: "Match the stored feature sets and return the query and train images side by side with connecting lines, as base64-encoded PNG. Pass the images the stored features were detected on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query_path": pathProperty,
					"train_path": pathProperty,
					"kind":       kindProperty,
				},
				"required": []string{"query_path", "train_path", "kind"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
