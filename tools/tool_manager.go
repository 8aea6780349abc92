package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jneaimi/locplat/util"
)

func RegisterToolManagerTool(s *server.MCPServer) {
	tool := mcp.NewTool("tool_manager",
		mcp.WithDescription("Manage MCP tools - enable or disable tool groups"),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform: list, enable, disable")),
		mcp.WithString("tool_name", mcp.Description("Tool group to enable/disable")),
	)

	s.AddTool(tool, util.ErrorGuard(util.AdaptLegacyHandler(toolManagerHandler)))
}

func toolManagerHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	action, ok := arguments["action"].(string)
	if !ok {
		return mcp.NewToolResultError("action must be a string"), nil
	}

	enableTools := os.Getenv("ENABLE_TOOLS")
	toolList := strings.Split(enableTools, ",")

	switch action {
	case "list":
		response := "Available tool groups:\n"
		allEnabled := enableTools == ""

		groups := []struct {
			name string
			desc string
		}{
			{"tool_manager", "Tool management"},
			{"translation", "Structured content translation and preview"},
			{"relationships", "Relationship-aware translation and schema analysis"},
			{"cache", "Translation cache maintenance and stats"},
		}

		for _, g := range groups {
			status := "disabled"
			if allEnabled || contains(toolList, g.name) {
				status = "enabled"
			}
			response += fmt.Sprintf("- %s (%s) [%s]\n", g.name, g.desc, status)
		}
		response += "\n"

		response += "Currently enabled tool groups:\n"
		if allEnabled {
			response += "All tool groups are enabled (ENABLE_TOOLS is empty)\n"
		} else {
			for _, tool := range toolList {
				if tool != "" {
					response += fmt.Sprintf("- %s\n", tool)
				}
			}
		}
		return mcp.NewToolResultText(response), nil

	case "enable", "disable":
		toolName, ok := arguments["tool_name"].(string)
		if !ok || toolName == "" {
			return mcp.NewToolResultError("tool_name is required for enable/disable actions"), nil
		}

		if enableTools == "" {
			toolList = []string{}
		}

		if action == "enable" {
			if !contains(toolList, toolName) {
				toolList = append(toolList, toolName)
			}
		} else {
			toolList = removeString(toolList, toolName)
		}

		newEnableTools := strings.Join(toolList, ",")
		os.Setenv("ENABLE_TOOLS", newEnableTools)

		return mcp.NewToolResultText(fmt.Sprintf("Successfully %sd tool group: %s", action, toolName)), nil

	default:
		return mcp.NewToolResultError("Invalid action. Use 'list', 'enable', or 'disable'"), nil
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func removeString(slice []string, item string) []string {
	result := []string{}
	for _, s := range slice {
		if s != item {
			result = append(result, s)
		}
	}
	return result
}
