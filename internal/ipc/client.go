package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the standard socket location.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithPath(socketPath)
}

// NewClientWithPath creates a client for an explicit socket path.
func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Run sends a command by name, e.g. Run("goto-tag", "2").
func (c *Client) Run(name, arg string) error {
	payload, err := json.Marshal(RunPayload{Name: name, Arg: arg})
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandRun, Payload: payload})
	return err
}

// Status retrieves the daemon's latest snapshot.
func (c *Client) Status() (*core.Status, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status core.Status
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// Windows retrieves the managed window list.
func (c *Client) Windows() ([]core.WindowStatus, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetWindows})
	if err != nil {
		return nil, err
	}

	var windows []core.WindowStatus
	if err := json.Unmarshal(resp.Data, &windows); err != nil {
		return nil, fmt.Errorf("failed to parse windows data: %w", err)
	}
	return windows, nil
}

// Tags retrieves the tag list with occupancy and layout.
func (c *Client) Tags() ([]core.TagStatus, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetTags})
	if err != nil {
		return nil, err
	}

	var tags []core.TagStatus
	if err := json.Unmarshal(resp.Data, &tags); err != nil {
		return nil, fmt.Errorf("failed to parse tags data: %w", err)
	}
	return tags, nil
}

// Screens retrieves the workspace-to-screen bindings.
func (c *Client) Screens() ([]core.ScreenStatus, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetScreens})
	if err != nil {
		return nil, err
	}

	var screens []core.ScreenStatus
	if err := json.Unmarshal(resp.Data, &screens); err != nil {
		return nil, fmt.Errorf("failed to parse screens data: %w", err)
	}
	return screens, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.sendRequest(&Request{Command: CommandPing})
	return err
}
