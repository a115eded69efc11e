// Package service provides the business logic layer for the pathfinding server.
//
// The service package implements:
//   - Request validation (cell grids or text layouts, endpoints, size cap)
//   - Search execution with a deadline and abandonment on cancellation
//   - Preset lookup and expansion
//   - Prometheus metrics and OpenTelemetry spans per search
//
// Core Interfaces:
//
// PathService is the main service interface used by the HTTP, WebSocket and
// MCP transports. PresetStore supplies named sample grids; preset.Manager
// implements it.
//
// Usage:
//
//	presets, _ := preset.NewManager("presets")
//	svc := service.NewPathService(presets,
//		service.WithTimeout(5*time.Second),
//		service.WithMetrics(service.NewMetrics(registry)),
//	)
//
//	result, err := svc.FindPath(ctx, &service.FindPathRequest{
//		Layout: []string{"S.#", "..E"},
//	})
//
// Searches are stateless; the service holds no per-request state and is safe
// for concurrent use. A search that outlives its deadline keeps running on its
// goroutine until it finishes, but the caller gets ErrSearchTimeout right away.
package service
