// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Log and measure every request:

	r.Use(middleware.WithLogging(logger, collector))

Each request logs method, path, status, bytes, duration and request id.
The observer receives the chi route pattern (for example /ideas/{id}) so
metric labels stay bounded.

# CORS

	r.Use(middleware.CORS(cfg.AllowedOrigins))

Allows GET, POST, DELETE and the Content-Type, Authorization and
X-Credit-Key headers for the configured origins.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.ChargeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Checks X-Forwarded-For, then X-Real-IP, then RemoteAddr.
*/
package middleware
