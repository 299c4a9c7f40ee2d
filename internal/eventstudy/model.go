package eventstudy

import (
	"fmt"
	"math"
)

// MinEstimationObservations is the smallest estimation sample a market model
// is fitted on.
const MinEstimationObservations = 10

// Sum of squared market deviations below which the fit is degenerate.
const minMarketVariation = 1e-20

// MarketModel is a fitted stock_return = Alpha + Beta*market_return. It is
// only valid for the ticker and estimation window that produced it.
type MarketModel struct {
	Alpha        float64
	Beta         float64
	Observations int
}

// Expected projects the stock return for a market return.
func (m MarketModel) Expected(marketReturn float64) float64 {
	return m.Alpha + m.Beta*marketReturn
}

// Fit estimates the market model by ordinary least squares with an intercept
// over the dates inside window present in both series.
func Fit(stock, market ReturnSeries, window DateRange) (MarketModel, error) {
	var xs, ys []float64
	for _, d := range stock.dates {
		if !window.Contains(d) {
			continue
		}
		y, ok := stock.At(d)
		if !ok {
			continue
		}
		x, ok := market.At(d)
		if !ok {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	n := len(xs)
	if n < MinEstimationObservations {
		return MarketModel{}, fmt.Errorf("%w: %d paired observations in %s, need %d",
			ErrInsufficientData, n, window, MinEstimationObservations)
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if !(sxx > minMarketVariation) {
		return MarketModel{}, fmt.Errorf("%w: market returns have zero variance in %s",
			ErrInsufficientData, window)
	}

	beta := sxy / sxx
	alpha := meanY - beta*meanX
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return MarketModel{}, fmt.Errorf("%w: non-finite fit in %s", ErrInsufficientData, window)
	}
	return MarketModel{Alpha: alpha, Beta: beta, Observations: n}, nil
}
