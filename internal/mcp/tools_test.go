package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tagwm/tagwm/internal/core"
)

// fakeClient records commands and serves canned snapshots.
type fakeClient struct {
	runs    [][2]string
	runErr  error
	status  core.Status
	statErr error
}

func (f *fakeClient) Run(name, arg string) error {
	if f.runErr != nil {
		return f.runErr
	}
	f.runs = append(f.runs, [2]string{name, arg})
	return nil
}

func (f *fakeClient) Status() (*core.Status, error) {
	if f.statErr != nil {
		return nil, f.statErr
	}
	s := f.status
	return &s, nil
}

func (f *fakeClient) Windows() ([]core.WindowStatus, error) {
	if f.statErr != nil {
		return nil, f.statErr
	}
	return f.status.Windows, nil
}

func (f *fakeClient) Tags() ([]core.TagStatus, error) {
	if f.statErr != nil {
		return nil, f.statErr
	}
	return f.status.Tags, nil
}

func testStatus() core.Status {
	return core.Status{
		ActiveWorkspace: 0,
		Windows: []core.WindowStatus{
			{ID: 7, Name: "editor", Tags: []string{"1"}, Visible: true, Focused: true},
			{ID: 9, Name: "browser", Tags: []string{"2"}},
		},
		Tags: []core.TagStatus{
			{Name: "1", Layout: "mainstack", Windows: 1, Displayed: true},
			{Name: "2", Layout: "mainstack", Windows: 1},
		},
		Screens: []core.ScreenStatus{
			{Name: "eDP-1", Geometry: "1920x1080+0+0"},
		},
	}
}

func TestHandleListWindows(t *testing.T) {
	fake := &fakeClient{status: testStatus()}
	s := NewServer(fake)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if len(out.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(out.Windows))
	}
	if out.Windows[0].ID != 7 || !out.Windows[0].Focused {
		t.Errorf("first window = %+v, want id 7 focused", out.Windows[0])
	}
}

func TestHandleListTags(t *testing.T) {
	fake := &fakeClient{status: testStatus()}
	s := NewServer(fake)

	_, out, err := s.handleListTags(context.Background(), nil, ListTagsInput{})
	if err != nil {
		t.Fatalf("handleListTags: %v", err)
	}
	if len(out.Tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(out.Tags))
	}
	if !out.Tags[0].Displayed || out.Tags[1].Displayed {
		t.Errorf("displayed flags wrong: %+v", out.Tags)
	}
}

func TestHandleGetStatus(t *testing.T) {
	fake := &fakeClient{status: testStatus()}
	s := NewServer(fake)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if len(out.Status.Screens) != 1 || out.Status.Screens[0].Name != "eDP-1" {
		t.Errorf("screens = %+v", out.Status.Screens)
	}
}

func TestHandleGetStatus_DaemonDown(t *testing.T) {
	fake := &fakeClient{statErr: errors.New("connection refused")}
	s := NewServer(fake)

	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil {
		t.Fatal("expected error when daemon is unreachable")
	}
}

func TestHandleGotoTag(t *testing.T) {
	fake := &fakeClient{}
	s := NewServer(fake)

	result, _, err := s.handleGotoTag(context.Background(), nil, GotoTagInput{Tag: "3"})
	if err != nil {
		t.Fatalf("handleGotoTag: %v", err)
	}
	if len(fake.runs) != 1 || fake.runs[0] != [2]string{string(core.CmdGotoTag), "3"} {
		t.Errorf("runs = %v", fake.runs)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected a text summary")
	}
}

func TestHandleMoveToTag(t *testing.T) {
	fake := &fakeClient{}
	s := NewServer(fake)

	if _, _, err := s.handleMoveToTag(context.Background(), nil, MoveToTagInput{Tag: "2"}); err != nil {
		t.Fatalf("handleMoveToTag: %v", err)
	}
	if len(fake.runs) != 1 || fake.runs[0] != [2]string{string(core.CmdMoveWindowToTag), "2"} {
		t.Errorf("runs = %v", fake.runs)
	}
}

func TestHandleSetLayout(t *testing.T) {
	fake := &fakeClient{}
	s := NewServer(fake)

	if _, _, err := s.handleSetLayout(context.Background(), nil, SetLayoutInput{Layout: "monocle"}); err != nil {
		t.Fatalf("handleSetLayout: %v", err)
	}
	if len(fake.runs) != 1 || fake.runs[0] != [2]string{string(core.CmdSetLayout), "monocle"} {
		t.Errorf("runs = %v", fake.runs)
	}
}

func TestHandleRunCommand(t *testing.T) {
	fake := &fakeClient{}
	s := NewServer(fake)

	result, _, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Name: "focus-window-next"})
	if err != nil {
		t.Fatalf("handleRunCommand: %v", err)
	}
	if len(fake.runs) != 1 || fake.runs[0][0] != "focus-window-next" {
		t.Errorf("runs = %v", fake.runs)
	}
	tc, ok := result.Content[0].(*mcpsdk.TextContent)
	if !ok || !strings.Contains(tc.Text, "focus-window-next") {
		t.Errorf("content = %+v", result.Content[0])
	}
}

func TestHandleRunCommand_DaemonRejects(t *testing.T) {
	fake := &fakeClient{runErr: errors.New("unknown tag \"nope\"")}
	s := NewServer(fake)

	_, _, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Name: "goto-tag", Arg: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unknown tag") {
		t.Fatalf("err = %v, want daemon rejection", err)
	}
}
