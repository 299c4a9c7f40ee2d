// Package eventstudy computes market-model abnormal returns around news events.
//
// For every event the package plans an estimation window and an event window,
// fetches the stock, market index and volatility index closing prices, fits
// stock_return = alpha + beta*market_return over the estimation window and
// emits one feature row per trading day in the [-3, +3] day range around the
// event date.
//
// # Components
//
//   - window.go: event window planning (80/6/5/5 day offsets)
//   - series.go: price and return series with strict date ordering
//   - model.go: ordinary least squares market model
//   - scalar.go: the single normalization boundary for provider values
//   - assembler.go: the orchestrator that runs a batch of events
//
// # Failure policy
//
// Problems that affect one event (unparsable or future date, missing price
// data, too few estimation observations) skip that event and are reported in
// Result.Skips. Missing values on a single day degrade that row's fields to
// absent. Run only returns an error when its context is cancelled.
package eventstudy
