// Package services implements the business logic layer between the HTTP
// handlers and the event-study engine.
//
// # Available Services
//
//	- FeatureService: runs the assembler one batch at a time, exports the
//	  feature table and optionally uploads it
//	- AnalysisService: builds regression requests and evaluates alerts
//	- HealthService: reports provider, run and WebSocket state
//
// # Error Handling
//
// Services return package sentinels (ErrRunInProgress, ErrNoResult,
// ErrTooManyEvents, ErrNotConfigured) or engine errors from the eventstudy
// package. Handlers translate them into problem details.
//
// # Testing
//
// Collaborators are interfaces and are mocked with testify:
//
//	runner := new(MockRunner)
//	runner.On("Run", mock.Anything, events).Return(result, nil)
//	svc := NewFeatureService(runner, logger)
package services
