// Package marketdata adapts daily price providers to the event-study engine.
//
// Providers return a raw Frame whose column naming varies by source: a plain
// "Close" column, or a composite ("Close", symbol) column as written by
// multi-ticker downloads. CloseSeries resolves either convention into one
// eventstudy.PriceSeries, passing every cell through eventstudy.Normalize.
//
// Fetcher wraps a Provider with a per-call timeout, a small bounded retry
// count and a memo cache keyed by symbol and date range, so the market and
// volatility index series shared by many events are downloaded once.
package marketdata
