package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func loadPDBTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_pdb",
		Description: "Load a PDB file, replacing the previously loaded one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the .pdb file",
				},
			},
			Required: []string{"path"},
		},
	}
}

func listTypesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_types",
		Description: "List the types of the loaded PDB whose name matches a filter",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filter": map[string]interface{}{
					"type":        "string",
					"description": "Substring of the name, or with use_regex a regular expression matching the whole name; empty lists every type",
				},
				"case_insensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "Ignore case when matching",
				},
				"use_regex": map[string]interface{}{
					"type":        "boolean",
					"description": "Treat filter as a regular expression",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of names returned (0 for all)",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

func reconstructTypeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reconstruct_type",
		Description: "Reconstruct the C++ declaration of a type in the loaded PDB",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Exact type name as returned by list_types",
				},
				"print_header": map[string]interface{}{
					"type":        "boolean",
					"description": "Prefix a comment banner naming the PDB file",
				},
				"print_dependencies": map[string]interface{}{
					"type":        "boolean",
					"description": "Also declare every type the declaration depends on",
				},
				"print_access_specifiers": map[string]interface{}{
					"type":        "boolean",
					"description": "Emit public/protected/private labels and base access",
				},
			},
			Required: []string{"name"},
		},
	}
}
