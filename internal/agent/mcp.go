package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/config"
	"github.com/comigor/friday-go/internal/logger"
)

// MCPClient is the subset of the mcp-go client surface the runner uses.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

const emptyObjectSchema = `{"type": "object", "properties": {}}`

// toolset holds the live MCP clients, the tools they expose in LLM form,
// and which client owns each tool name.
type toolset struct {
	clients  []MCPClient
	llmTools []openai.Tool
	owner    map[string]MCPClient
}

// connectMCPServers dials every configured server, initializes it and
// aggregates its tools. Servers that fail to connect are skipped with a
// log entry; a run with zero servers is fine.
func connectMCPServers(servers []config.MCPServerConfig) toolset {
	ts := toolset{owner: make(map[string]MCPClient)}
	setupCtx := context.Background()

	for _, serverCfg := range servers {
		if serverCfg.Type == "" {
			logger.L.Warn("MCP server type not specified for entry. Skipping. Please set 'type' to 'sse', 'streamable_http' or 'stdio'.", "name", serverCfg.Name)
			continue
		}

		mcpC, err := newMCPClient(serverCfg)
		if err != nil {
			logger.L.Error("Failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		// Stdio transports start themselves when the client is created.
		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(setupCtx); err != nil {
				logger.L.Error("Failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				if cerr := mcpC.Close(); cerr != nil {
					logger.L.Warn("MCP client close error after start failure", "error", cerr)
				}
				continue
			}
		}

		initReq := mcp.InitializeRequest{
			Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
		}
		if _, err := mcpC.Initialize(setupCtx, initReq); err != nil {
			logger.L.Error("Failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			if cerr := mcpC.Close(); cerr != nil {
				logger.L.Warn("MCP client close error after init failure", "error", cerr)
			}
			continue
		}
		logger.L.Info("Server initialized", "name", serverCfg.Name)
		ts.clients = append(ts.clients, mcpC)

		serverTools, err := mcpC.ListTools(setupCtx, mcp.ListToolsRequest{})
		if err != nil {
			logger.L.Warn("Failed to list tools for MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		for _, mcpTool := range serverTools.Tools {
			if _, exists := ts.owner[mcpTool.Name]; exists {
				logger.L.Warn("Tool already registered from another server. Skipping.", "tool", mcpTool.Name, "name", serverCfg.Name)
				continue
			}
			ts.owner[mcpTool.Name] = mcpC
			ts.llmTools = append(ts.llmTools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        mcpTool.Name,
					Description: mcpTool.Description,
					Parameters:  toolParameters(mcpTool),
				},
			})
			logger.L.Info("Registered tool from MCP server for LLM", "tool", mcpTool.Name, "name", serverCfg.Name)
		}
	}

	if len(ts.clients) == 0 && len(servers) > 0 {
		logger.L.Warn("No MCP clients were successfully initialized despite servers configured.", "length", len(servers))
	}
	return ts
}

func newMCPClient(serverCfg config.MCPServerConfig) (*client.Client, error) {
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		return client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		return client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, k+"="+v)
		}
		return client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	}
	return nil, fmt.Errorf("unsupported MCP server type %q", serverCfg.Type)
}

// toolParameters picks the JSON schema advertised for a tool, falling
// back to an empty object schema so the LLM always sees valid JSON.
func toolParameters(mcpTool mcp.Tool) json.RawMessage {
	if len(mcpTool.RawInputSchema) > 0 && string(mcpTool.RawInputSchema) != "null" {
		return mcpTool.RawInputSchema
	}
	schemaBytes, err := json.Marshal(mcpTool.InputSchema)
	if err != nil {
		logger.L.Error("Failed to marshal input schema for tool. Using empty schema.", "tool", mcpTool.Name, "error", err)
		return json.RawMessage(emptyObjectSchema)
	}
	if s := string(schemaBytes); s == "{}" || s == "null" {
		logger.L.Warn("Tool has an empty or null schema. Using default empty object schema for LLM.", "tool", mcpTool.Name)
		return json.RawMessage(emptyObjectSchema)
	}
	return schemaBytes
}

// executeTool calls the MCP tool that owns toolName and renders its
// result as text for the LLM. Failures come back as error strings so the
// conversation can continue.
func (r *Runner) executeTool(ctx context.Context, toolName string, toolArgs map[string]any) string {
	owner, ok := r.toolOwner[toolName]
	if !ok {
		logger.L.Warn("LLM requested an unknown tool", "tool", toolName)
		return "Error: tool " + toolName + " is not available"
	}

	logger.L.Debug("Attempting CallTool", "tool", toolName, "arguments", toolArgs)
	result, err := owner.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: toolArgs},
	})
	if err != nil {
		logger.L.Warn("MCP CallTool failed", "tool", toolName, "error", err)
		return "Error: tool " + toolName + " failed: " + err.Error()
	}
	if result == nil {
		return "Error: tool " + toolName + " returned no result"
	}

	var text string
	for _, contentItem := range result.Content {
		if textContent, ok := contentItem.(mcp.TextContent); ok {
			text = textContent.Text
			break
		}
	}
	if result.IsError {
		logger.L.Warn("MCP tool executed with IsError=true", "tool", toolName, "content", text)
		if text == "" {
			text = "Tool execution resulted in an error without specific text."
		}
		return text
	}
	if text == "" {
		resultBytes, merr := json.Marshal(result)
		if merr != nil {
			return "Tool executed successfully, but result could not be formatted."
		}
		text = string(resultBytes)
	}
	return text
}

// Close shuts down every connected MCP client.
func (r *Runner) Close() {
	for _, c := range r.mcpClients {
		if err := c.Close(); err != nil {
			logger.L.Warn("MCP client close error", "error", err)
		}
	}
}
