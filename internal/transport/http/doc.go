// Package http implements the HTTP handlers of the feature service.
//
// Handlers stay thin: they decode and validate the request, call a service,
// and render either JSON or an RFC 7807 problem through the shared
// apierrors.ErrorHandler. Service sentinels are translated to API errors
// here so the services never depend on HTTP.
//
// Routes:
//
//	GET  /healthz                   liveness and collaborator state
//	POST /api/v1/features           run the event study over a batch of news events
//	GET  /api/v1/features/latest    last completed run (?format=json|csv|xlsx|parquet)
//	POST /api/v1/analysis/request   regression request arrays for feature rows
//	POST /api/v1/analysis/run       post the request to the regression service
//	POST /api/v1/alerts             sentiment alerts for scored tickers
//	GET  /ws                        run progress stream
//	GET  /metrics                   Prometheus exposition
package http
