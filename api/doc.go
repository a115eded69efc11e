// Package api provides HTTP REST API handlers for the pathfinding server.
//
// The api package implements:
//   - The find-path endpoint for cell grids and text layouts
//   - Preset listing, lookup and solving
//   - WebSocket upgrade handling for trace streaming
//   - Health and Prometheus metrics endpoints
//   - CORS for browser frontends
//
// Endpoints:
//
// Searches:
//   - POST /api/find-path - Run a search on a grid or layout
//
// Presets:
//   - GET /api/presets - List available presets
//   - GET /api/presets/{name} - Get a preset expanded into cells
//   - POST /api/presets/{name}/find-path - Solve a preset (?channel= to stream)
//
// Other:
//   - GET /ws?channel=<id> - Subscribe to traces broadcast on a channel
//   - GET /health - Health check
//   - GET /metrics - Prometheus metrics (when enabled)
//
// Request Format:
//
//	POST /api/find-path
//	{
//	  "grid": [[{"row": 0, "col": 0, "type": "START"}, ...], ...],
//	  "start": {"row": 0, "col": 0},
//	  "end": {"row": 2, "col": 2},
//	  "channel": "demo"
//	}
//
// or, with start and end taken from the S and E characters:
//
//	{"layout": ["S..", ".#.", "..E"]}
//
// Response Format:
//
//	{
//	  "shortestPath": [{"row": 0, "col": 0, "type": "START"}, ...],
//	  "visualizationSteps": [{"action": "visiting", "visitedNodes": [...], "updatedDistances": []}, ...],
//	  "message": "Path found successfully!",
//	  "pathFound": true,
//	  "distance": 4
//	}
//
// Errors keep the same envelope with "pathFound": false and an "error"
// field: 400 for bad input (missing grid or endpoints, malformed grid,
// out-of-bounds or obstacle endpoint, grid too large), 404 for unknown
// presets, 504 when the search times out, 500 otherwise.
package api
