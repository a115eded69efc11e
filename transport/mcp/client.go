package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
	"github.com/wricardo/gridpath/pathfinding/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid Pathfinder",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid Pathfinder - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Finds the shortest path between two cells of a grid with obstacles, moving
up/down/left/right at cost 1 per move, and reports how the search explored
the grid.

AVAILABLE TOOLS:
- find_path: Solve a grid given as text rows (. empty, # obstacle, S start, E end)
- list_presets: List the sample grids available on the server
- solve_preset: Solve a sample grid by name
- pathfinding_instructions: Layout format, output format and tips

Pass a channel name to find_path or solve_preset to stream the search to
browsers subscribed on /ws?channel=<name>.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "find_path",
		Description: "Find the shortest path through a grid given as text rows. Use '.' for empty cells, '#' for obstacles, 'S' for the start and 'E' for the end.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": `Grid rows of equal length, e.g. ["S..", ".#.", "..E"]`,
				},
				"start": map[string]interface{}{
					"type":        "string",
					"description": "Override the start as 'row,col' (optional, defaults to the S cell)",
				},
				"end": map[string]interface{}{
					"type":        "string",
					"description": "Override the end as 'row,col' (optional, defaults to the E cell)",
				},
				"channel": map[string]interface{}{
					"type":        "string",
					"description": "WebSocket channel to stream the search to (optional)",
				},
				"show_trace": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the order in which cells were visited (optional)",
				},
			},
			Required: []string{"layout"},
		},
	}, c.handleFindPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List the sample grids available on the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_preset",
		Description: "Solve a sample grid by name and show the path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Preset id from list_presets",
				},
				"channel": map[string]interface{}{
					"type":        "string",
					"description": "WebSocket channel to stream the search to (optional)",
				},
				"show_trace": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the order in which cells were visited (optional)",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleSolvePreset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pathfinding_instructions",
		Description: "Get the layout format, output format and tips for the pathfinding tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleFindPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	layoutRaw, _ := args["layout"].([]interface{})
	channel, _ := args["channel"].(string)
	showTrace, _ := args["show_trace"].(bool)

	if len(layoutRaw) == 0 {
		return mcp.NewToolResultError("layout is required: an array of grid rows"), nil
	}
	layout := make([]string, 0, len(layoutRaw))
	for i, row := range layoutRaw {
		s, ok := row.(string)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("layout row %d is not a string", i)), nil
		}
		layout = append(layout, s)
	}

	req := service.FindPathRequest{Layout: layout, Channel: channel}
	for key, dst := range map[string]**grid.Coord{"start": &req.Start, "end": &req.End} {
		raw, _ := args[key].(string)
		if raw == "" {
			continue
		}
		coord, err := parseCoord(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid %s: %v", key, err)), nil
		}
		*dst = &coord
	}

	var result service.FindPathResult
	if err := c.apiCall(ctx, "POST", "/api/find-path", req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFindPathResult(&result, showTrace)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int            `json:"count"`
		Presets []*preset.Info `json:"presets"`
	}

	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Presets (%d):\n\n", response.Count)
	for _, p := range response.Presets {
		fmt.Fprintf(&b, "- %s: %s (%dx%d)", p.PresetID, p.Name, p.Rows, p.Cols)
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSolvePreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	channel, _ := args["channel"].(string)
	showTrace, _ := args["show_trace"].(bool)

	if name == "" {
		return mcp.NewToolResultError("name is required; use list_presets to see the options"), nil
	}

	path := fmt.Sprintf("/api/presets/%s/find-path", url.PathEscape(name))
	if channel != "" {
		path += "?channel=" + url.QueryEscape(channel)
	}

	var result service.FindPathResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFindPathResult(&result, showTrace)), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Grid Pathfinder - Instructions

LAYOUT FORMAT:
Each row is a string; all rows must have the same length.
  .  empty cell (passable)
  #  obstacle (impassable)
  S  start (exactly one)
  E  end (exactly one)

Example:
  ["S.#.",
   "..#.",
   "...E"]

MOVEMENT:
Moves go up, down, left or right; every move costs 1. Diagonal moves are not
allowed. The start and end must not be obstacles.

OUTPUT:
The grid is redrawn with '*' on every cell of the shortest path:
  S.#.
  *.#.
  ***E

Distance is the number of moves. "Finalized cells" counts cells whose shortest
distance was settled before the end was reached; the trace lists the order
in which they were visited.

When no path exists the response says "No path found." and shows how much of
the grid was reachable.

TIPS:
- Ties are broken the same way every time, so the same grid always yields the
  same path and trace.
- Use start/end ("row,col", zero-based) to try other endpoints without
  editing the layout.
- Use list_presets and solve_preset to explore sample grids.`

	return mcp.NewToolResultText(instructions), nil
}

// parseCoord parses "row,col"
func parseCoord(s string) (grid.Coord, error) {
	var c grid.Coord
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%d,%d", &c.Row, &c.Col); err != nil {
		return grid.Coord{}, fmt.Errorf("expected 'row,col', got %q", s)
	}
	return c, nil
}

func formatCoord(c grid.Coord) string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

func formatFindPathResult(result *service.FindPathResult, showTrace bool) string {
	var b strings.Builder

	if result.PathFound {
		b.WriteString("✅ " + result.Message + "\n")
	} else {
		b.WriteString("❌ " + result.Message + "\n")
	}
	if result.Preset != "" {
		fmt.Fprintf(&b, "Preset: %s\n", result.Preset)
	}
	fmt.Fprintf(&b, "Grid: %dx%d | Start: %s | End: %s\n",
		result.Rows, result.Cols, formatCoord(result.Start), formatCoord(result.End))
	if result.Distance != nil {
		fmt.Fprintf(&b, "Distance: %d moves\n", *result.Distance)
	}
	fmt.Fprintf(&b, "Finalized cells: %d | Trace steps: %d (%s)\n",
		result.FinalizedCells, len(result.VisualizationSteps), formatActionCounts(result.VisualizationSteps))

	if len(result.Rendered) > 0 {
		b.WriteString("\n")
		for _, row := range result.Rendered {
			b.WriteString(row + "\n")
		}
	}

	if len(result.ShortestPath) > 0 {
		parts := make([]string, len(result.ShortestPath))
		for i, cell := range result.ShortestPath {
			parts[i] = formatCoord(cell.Coord())
		}
		b.WriteString("\nPath: " + strings.Join(parts, " -> ") + "\n")
	}

	if showTrace {
		b.WriteString("\nVisit order: " + formatVisitOrder(result.VisualizationSteps) + "\n")
	}

	if result.Channel != "" {
		fmt.Fprintf(&b, "\nStreamed to channel %q\n", result.Channel)
	}
	return b.String()
}

func formatActionCounts(steps []search.Step) string {
	counts := map[search.Action]int{}
	for _, s := range steps {
		counts[s.Action]++
	}
	return fmt.Sprintf("%d visiting, %d updating_distance, %d path_found",
		counts[search.ActionVisiting], counts[search.ActionUpdatingDistance], counts[search.ActionPathFound])
}

func formatVisitOrder(steps []search.Step) string {
	var parts []string
	for _, s := range steps {
		if s.Action != search.ActionVisiting {
			continue
		}
		for _, v := range s.Visited {
			parts = append(parts, formatCoord(v.Coord()))
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}
