// Package send posts a chat message to a running overlay.
package send

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/teamviz/pkg/widget"
)

// Response mirrors the body of POST /message.
type Response struct {
	Status  string   `json:"status"`
	Changed bool     `json:"changed"`
	Args    []string `json:"args,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Send delivers Message to the overlay at Addr.
type Send struct {
	Addr    string
	Message widget.Message
	JSON    bool

	Client *http.Client
	Out    io.Writer
}

// URL is the ingestion endpoint for Addr.
func (s *Send) URL() string {
	addr := strings.TrimRight(s.Addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr + "/message"
}

func (s *Send) Do(ctx context.Context) error {
	body, err := json.Marshal(s.Message)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	var res Response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("send: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send: %s: %s", resp.Status, res.Error)
	}

	out := s.Out
	if out == nil {
		out = color.Output
	}
	if s.JSON {
		return json.NewEncoder(out).Encode(res)
	}
	s.Print(out, res)
	return nil
}

// Print writes a one line summary of res.
func (s *Send) Print(out io.Writer, res Response) {
	c := color.New(color.FgYellow)
	switch {
	case res.Error != "":
		c = color.New(color.FgRed)
	case res.Changed:
		c = color.New(color.FgGreen)
	}
	line := c.Sprint(res.Status)
	if len(res.Args) > 0 {
		line += " " + strings.Join(res.Args, " ")
	}
	if res.Changed {
		line += " (changed)"
	}
	if res.Error != "" {
		line += ": " + res.Error
	}
	_, _ = fmt.Fprintln(out, line)
}
