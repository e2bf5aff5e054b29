/*
Package monitoring provides metrics collection for the codelab server.

# Overview

Every metric is registered on a private Prometheus registry owned by Metrics,
so tests can build as many collectors as they like without clashing on the
global default registry.

# Features

- HTTP request metrics (latency, throughput, size)
- Preview metrics (renders by trigger, render-to-load latency, console
  entries by level, bridge drops by reason)
- Terminal metrics (commands by verb and status, simulated duration,
  busy rejections)
- WebSocket connection metrics
- Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "python")
	// ... run the command ...
	timer.Stop("success")
*/
package monitoring
