// Package mcp provides the Model Context Protocol interface for the
// pathfinding server.
//
// The mcp package implements a thin client: every tool call is forwarded to
// the REST API and the JSON response is formatted as text for the agent.
//
// MCP Tools:
//   - find_path: Solve a grid given as text rows, with optional start/end overrides
//   - list_presets: List sample grids
//   - solve_preset: Solve a sample grid by name
//   - pathfinding_instructions: Layout format, output format and tips
//
// find_path and solve_preset accept a channel argument; the server then
// streams the search trace to websocket clients subscribed to that channel.
//
// Transport Modes:
//   - Stdio: `gridpath mcp` serves the tools over stdio against a REST server
//   - HTTP: POST /mcp on the main server handles JSON-RPC messages
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
