package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/placesearch/internal/search"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "placesearch"

// Searcher is the search surface the MCP tools need.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Lookup(ctx context.Context, id string) (place.Place, error)
	Providers() []place.Source
	CircuitStates() map[place.Source]string
}

// Server is the MCP server for place search.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearchPlaces,
		Description: "Find places (businesses, landmarks, addresses) by free text across the local index, Mapbox and Google Places. Results are merged and deduplicated. Pass latitude and longitude to prefer nearby places.",
	},
	{
		Name:        ToolGetPlace,
		Description: "Get full details for one place by the provider-qualified id returned from search_places.",
	},
	{
		Name:        ToolProviderStatus,
		Description: "List the configured place providers and whether each is currently reachable.",
	},
}

// NewServer creates a new MCP server.
func NewServer(searcher Searcher, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		logger:   logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchPlacesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpGetPlaceHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpProviderStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchPlaces:
		var in SearchPlacesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.searchPlaces(ctx, in)
	case ToolGetPlace:
		var in GetPlaceInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.getPlace(ctx, in)
	case ToolProviderStatus:
		return s.providerStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) searchPlaces(ctx context.Context, in SearchPlacesInput) (SearchPlacesOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchPlacesOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if in.Limit < 0 {
		return SearchPlacesOutput{}, NewInvalidParamsError("limit must not be negative")
	}

	req := search.Request{
		Query:   in.Query,
		Limit:   in.Limit,
		Refresh: in.Refresh,
	}
	for _, name := range in.Providers {
		src, err := place.ParseSource(name)
		if err != nil {
			return SearchPlacesOutput{}, NewInvalidParamsError(err.Error())
		}
		req.Providers = append(req.Providers, src)
	}
	switch {
	case in.Latitude != nil && in.Longitude != nil:
		req.Near = &place.Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}
	case in.Latitude != nil || in.Longitude != nil:
		return SearchPlacesOutput{}, NewInvalidParamsError("latitude and longitude must be given together")
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", in.Limit))

	res, err := s.searcher.Search(ctx, req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return SearchPlacesOutput{}, MapError(err)
	}

	out := SearchPlacesOutput{
		Places:   make([]PlaceOutput, 0, len(res.Places)),
		Warnings: toWarnings(res.PartialFailures),
		CacheHit: res.CacheHit,
	}
	for _, p := range res.Places {
		out.Places = append(out.Places, ToPlaceOutput(p))
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(out.Places)),
		slog.Int("failed_providers", len(out.Warnings)),
		slog.Bool("cache_hit", out.CacheHit))
	return out, nil
}

func (s *Server) getPlace(ctx context.Context, in GetPlaceInput) (PlaceOutput, error) {
	if strings.TrimSpace(in.ID) == "" {
		return PlaceOutput{}, NewInvalidParamsError("id parameter is required")
	}
	p, err := s.searcher.Lookup(ctx, in.ID)
	if err != nil {
		s.logger.Warn("get_place failed",
			slog.String("id", in.ID),
			slog.String("error", err.Error()))
		return PlaceOutput{}, MapError(err)
	}
	return ToPlaceOutput(p), nil
}

func (s *Server) providerStatus() ProviderStatusOutput {
	states := s.searcher.CircuitStates()
	out := ProviderStatusOutput{}
	for _, src := range sortedSources(s.searcher.Providers()) {
		circuit := states[src]
		if circuit == "" {
			circuit = "closed"
		}
		out.Providers = append(out.Providers, ProviderState{Name: string(src), Circuit: circuit})
	}
	return out
}

func (s *Server) mcpSearchPlacesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchPlacesInput) (
	*mcp.CallToolResult,
	SearchPlacesOutput,
	error,
) {
	out, err := s.searchPlaces(ctx, input)
	if err != nil {
		return nil, SearchPlacesOutput{}, err
	}
	return textResult(FormatSearchResults(input.Query, out)), out, nil
}

func (s *Server) mcpGetPlaceHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetPlaceInput) (
	*mcp.CallToolResult,
	PlaceOutput,
	error,
) {
	out, err := s.getPlace(ctx, input)
	if err != nil {
		return nil, PlaceOutput{}, err
	}
	return textResult(FormatPlace(out)), out, nil
}

func (s *Server) mcpProviderStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ ProviderStatusInput) (
	*mcp.CallToolResult,
	ProviderStatusOutput,
	error,
) {
	return nil, s.providerStatus(), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
