// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
)

// Handlers holds the HTTP handlers for the assistant service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers backed by the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleQuery answers POST /v1/assistant/query.
func (h *Handlers) HandleQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "assistant.HandleQuery")
		defer span.End()

		var req QueryRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the query request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: query and user_id are required"})
			return
		}

		resp := h.svc.ProcessQuery(ctx, req)
		c.JSON(http.StatusOK, resp)
	}
}

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadyCheck reports readiness: the store must be loaded.
func (h *Handlers) ReadyCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.svc == nil || h.svc.store.Len() == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no issues loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "issues": h.svc.store.Len()})
	}
}
