// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches the assistant endpoints to the router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/health", HealthCheck)
	router.GET("/ready", h.ReadyCheck())

	v1 := router.Group("/v1")
	{
		v1.POST("/assistant/query", h.HandleQuery())
	}
}
