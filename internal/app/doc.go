// Package app wires the feature service together and manages its lifecycle.
//
// New resolves paths, installs OpenTelemetry, builds the Pipeline (price
// provider, assembler, exporters, analysis service), starts the WebSocket
// hub and mounts the HTTP handlers behind the middleware chain:
//
//	RequestID → OTel → StructuredLogger → Recoverer → SecurityHeaders → CORS → RateLimiter → APIKeyAuth
//
// BuildPipeline is also used by the batch CLI, so both entry points run the
// same engine with the same configuration.
package app
