// Package websocket streams search traces to animation clients.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Clients subscribe to a named channel with /ws?channel=<id>;
// a find-path request that carries the same channel has its trace replayed
// to them.
//
// Message Protocol:
//
// Each frame is one JSON message:
//
//	{"channel": "demo", "event": "search_started", "data": {"rows": 3, "cols": 3, "totalSteps": 16, ...}}
//	{"channel": "demo", "event": "steps", "offset": 0, "steps": [{"action": "visiting", ...}, ...]}
//	{"channel": "demo", "event": "search_complete", "data": {"pathFound": true, "shortestPath": [...]}}
//
// Steps arrive in trace order; offset is the index of the first step in the
// frame. Incoming client messages are ignored.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithAllowedOrigins(origins))
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("channel"))
//	})
//
//	hub.BroadcastSearch("demo", result)
//
// Concurrency:
//
// The channel map is owned by the Run goroutine; registration, broadcasts
// and subscriber counts are all requests to it. A client whose send buffer
// fills up is dropped. After Run returns, broadcasts are discarded.
package websocket
