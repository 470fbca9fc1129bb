package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tagwm/tagwm/internal/core"
)

// ListWindowsInput is the (empty) input for the list_windows tool.
type ListWindowsInput struct{}

type ListWindowsOutput struct {
	Windows []core.WindowStatus `json:"windows"`
}

type ListTagsInput struct{}

type ListTagsOutput struct {
	Tags []core.TagStatus `json:"tags"`
}

type GetStatusInput struct{}

type GetStatusOutput struct {
	Status core.Status `json:"status"`
}

type GotoTagInput struct {
	Tag string `json:"tag" jsonschema:"required,The tag name to display"`
}

type MoveToTagInput struct {
	Tag string `json:"tag" jsonschema:"required,The tag name to move the focused window to"`
}

type SetLayoutInput struct {
	Layout string `json:"layout" jsonschema:"required,The layout name"`
}

type RunCommandInput struct {
	Name string `json:"name" jsonschema:"required,The command name, e.g. focus-window-next"`
	Arg  string `json:"arg,omitempty" jsonschema:"The command argument, for commands that take one"`
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.client.Windows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

func (s *Server) handleListTags(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListTagsInput) (*mcpsdk.CallToolResult, ListTagsOutput, error) {
	tags, err := s.client.Tags()
	if err != nil {
		return nil, ListTagsOutput{}, err
	}
	return nil, ListTagsOutput{Tags: tags}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.client.Status()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{Status: *status}, nil
}

func (s *Server) handleGotoTag(_ context.Context, _ *mcpsdk.CallToolRequest, args GotoTagInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Run(string(core.CmdGotoTag), args.Tag); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Displayed tag %q", args.Tag)), nil, nil
}

func (s *Server) handleMoveToTag(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveToTagInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Run(string(core.CmdMoveWindowToTag), args.Tag); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Moved focused window to tag %q", args.Tag)), nil, nil
}

func (s *Server) handleSetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args SetLayoutInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Run(string(core.CmdSetLayout), args.Layout); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Layout set to %q", args.Layout)), nil, nil
}

func (s *Server) handleRunCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunCommandInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Run(args.Name, args.Arg); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Ran %s", args.Name)), nil, nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
