// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/issueassist/services/assistant"
	"github.com/AleutianAI/issueassist/services/assistant/answer"
	"github.com/AleutianAI/issueassist/services/assistant/permission"
	"github.com/AleutianAI/issueassist/services/assistant/store"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "issueassist-service"

// initTracer wires the OTLP trace exporter. When no collector endpoint is
// configured the service runs without exporting; the instrumented spans
// become no-ops.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}

	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("ISSUEASSIST_PORT")
	if port == "" {
		port = "12320"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	dataPath := os.Getenv("ISSUEASSIST_DATA")
	if dataPath == "" {
		dataPath = "data/issues.json"
	}
	st, err := store.Load(dataPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load the issue data: %v", err)
	}
	slog.Info("Loaded issue store", "path", dataPath, "issues", st.Len())

	permPath := os.Getenv("ISSUEASSIST_PERMISSIONS")
	if permPath == "" {
		permPath = "data/permissions.json"
	}
	table, err := permission.LoadTable(permPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load the permission table: %v", err)
	}
	slog.Info("Loaded permission table", "path", permPath)

	log.Println("Configuring the answer backend")
	answerer, err := answer.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize the answer backend: %v", err)
	}

	svc := assistant.NewService(st, table, answerer)
	handlers := assistant.NewHandlers(svc)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	assistant.RegisterRoutes(router, handlers)

	log.Println("Starting the assistant server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
