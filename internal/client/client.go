// Package client is the typed HTTP client for the manager's
// introspection API, used by the CLI and the watch TUI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/history"
	"github.com/RevCBH/unitd/internal/manager"
)

// Client talks to a running unitd daemon
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the daemon listening at addr (host:port)
func New(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon: %s", body.Error)
	}
	return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
}

// Jobs lists every installed job
func (c *Client) Jobs(ctx context.Context) ([]manager.JobView, error) {
	var jobs []manager.JobView
	err := c.get(ctx, "/api/jobs", &jobs)
	return jobs, err
}

// Job fetches one installed job
func (c *Client) Job(ctx context.Context, id uint32) (manager.JobView, error) {
	var view manager.JobView
	err := c.get(ctx, fmt.Sprintf("/api/jobs/%d", id), &view)
	return view, err
}

// InstallRequest asks the daemon to install a job
type InstallRequest struct {
	Unit string `json:"unit"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`

	Override    bool `json:"override,omitempty"`
	IgnoreOrder bool `json:"ignore_order,omitempty"`
}

// Install installs a job on a unit
func (c *Client) Install(ctx context.Context, req InstallRequest) (manager.JobView, error) {
	var view manager.JobView

	data, err := json.Marshal(req)
	if err != nil {
		return view, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/jobs", bytes.NewReader(data))
	if err != nil {
		return view, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return view, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return view, apiError(resp)
	}
	return view, json.NewDecoder(resp.Body).Decode(&view)
}

// Cancel cancels one installed job
func (c *Client) Cancel(ctx context.Context, id uint32) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/jobs/%d", c.baseURL, id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// History fetches the finished-job journal, newest first. An empty unit
// name means all units.
func (c *Client) History(ctx context.Context, unit string, limit int) ([]history.Entry, error) {
	path := fmt.Sprintf("/api/history?limit=%d", limit)
	if unit != "" {
		path += "&unit=" + unit
	}
	var entries []history.Entry
	err := c.get(ctx, path, &entries)
	return entries, err
}

// Watch streams job events into ch until the context is canceled. The
// channel is closed when the stream ends.
func (c *Client) Watch(ctx context.Context, ch chan<- events.Event) error {
	wsURL := "ws" + c.baseURL[len("http"):] + "/api/events"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		close(ch)
		return fmt.Errorf("failed to connect event stream: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	defer close(ch)
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		e, err := events.Unmarshal(data)
		if err != nil {
			continue
		}
		select {
		case ch <- e:
		case <-ctx.Done():
			return nil
		}
	}
}
