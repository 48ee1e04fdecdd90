// Package mcp exposes the overlay to Model Context Protocol clients.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport selects the mechanism used to expose the MCP server.
type Transport string

const (
	// TransportHTTP mounts the streamable HTTP handler on the overlay server.
	TransportHTTP Transport = "http"
	// TransportStdio serves MCP over stdio.
	TransportStdio Transport = "stdio"
)

// Runner coordinates MCP server startup.
type Runner struct {
	Overlay Overlay
	Name    string
	Version string
}

// Server builds the MCP server with every overlay tool registered.
func (r Runner) Server() *mcp.Server {
	name := r.Name
	if name == "" {
		name = "teamviz"
	}
	version := r.Version
	if version == "" {
		version = "dev"
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{
		Instructions: "Drive the team overlay: run chat commands and read the slot state.",
	})
	registerTools(srv, r.Overlay)
	return srv
}

// Handler serves the MCP server over streamable HTTP.
func (r Runner) Handler() http.Handler {
	srv := r.Server()
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
}

// Do serves over stdio until ctx ends or the client disconnects.
func (r Runner) Do(ctx context.Context) error {
	if r.Overlay == nil {
		return errors.New("mcp runner requires an overlay")
	}
	err := r.Server().Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
