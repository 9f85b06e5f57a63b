// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router wires the HTTP surface onto a chi router.

	mux := router.NewRouter(router.Deps{
		Store:   store,
		Charger: charger,
		Live:    liveServer.HandleWebSocket,
		Metrics: collector,
		Logger:  logger,
	}, cfg)

# Routes

	GET    /health                → "OK"
	GET    /                      → API banner
	GET    /metrics               → Prometheus exposition
	GET    /ideas                 → paged ideas
	POST   /ideas                 → create idea
	POST   /api/opennode/charge   → Lightning invoice for a vote
	POST   /ideas/{id}/votes      → credit a paid vote (X-Credit-Key)
	DELETE /ideas/{id}            → remove an idea (X-Credit-Key)
	GET    /ws                    → live board session

Every route gets a request id, panic recovery and CORS. The API routes are
also logged and measured; /ws is not, since the connection outlives the
request.
*/
package router
