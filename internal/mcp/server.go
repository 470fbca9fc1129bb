// Package mcp exposes the window manager to MCP clients over stdio. It is a
// thin bridge: every tool call becomes an IPC request to the running daemon.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tagwm/tagwm/internal/core"
)

const (
	ServerName    = "tagwm"
	ServerVersion = "0.1.0"
)

// wmClient is the slice of the IPC client the tools need. Tests substitute a
// fake; production passes *ipc.Client.
type wmClient interface {
	Run(name, arg string) error
	Status() (*core.Status, error)
	Windows() ([]core.WindowStatus, error)
	Tags() ([]core.TagStatus, error)
}

// Server is the MCP server bridging tool calls to the daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    wmClient
}

// NewServer creates an MCP server talking to the daemon through client.
func NewServer(client wmClient) *Server {
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List all managed windows with their tags, focus, visibility and geometry.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_tags",
		Description: "List all tags with their layout, window count and whether a workspace currently displays them.",
	}, s.handleListTags)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get the full window manager snapshot: active workspace, windows, tags and screens.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "goto_tag",
		Description: "Display a tag on the active workspace. If another workspace shows the tag, the two workspaces trade tag sets.",
	}, s.handleGotoTag)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_to_tag",
		Description: "Move the focused window to a tag.",
	}, s.handleMoveToTag)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_layout",
		Description: "Set the layout of the tag focused on the active workspace. Layouts: mainstack, monocle, grid, evenhorizontal, evenvertical.",
	}, s.handleSetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_command",
		Description: "Run any window manager command by name, e.g. focus-window-next, toggle-floating, close-window. Commands with an argument take it in arg.",
	}, s.handleRunCommand)
}
