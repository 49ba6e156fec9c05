package mcp

import (
	"context"
	"fmt"

	"revforecast/internal/forecast"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const serverName = "revforecast"

// Server exposes the forecasting service as MCP tools over stdio.
type Server struct {
	service *forecast.Service
	server  *sdk.Server
}

// NewServer creates the MCP server and registers its tools.
func NewServer(service *forecast.Service, version string) (*Server, error) {
	s := &Server{
		service: service,
		server:  sdk.NewServer(&sdk.Implementation{Name: serverName, Version: version}, nil),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serve runs the stdio transport until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("server", serverName).Msg("MCP server listening on stdio")
	if err := s.server.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

// inputSchema derives a tool's JSON schema from its argument struct.
func inputSchema[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to derive input schema: %w", err)
	}
	return schema, nil
}
