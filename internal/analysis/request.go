// Package analysis shapes feature rows for the remote panel-regression
// service and evaluates sentiment alerts.
package analysis

import (
	"strings"

	"esgpulse/pkg/contracts/domain"
)

// Request is the body accepted by the run-analysis endpoint. All arrays have
// one entry per feature row; absent values are null.
type Request struct {
	AbnormalReturns []*float64 `json:"abnormal_returns"`
	SentimentScores []*float64 `json:"sentiment_scores"`
	SectorDummies   []*float64 `json:"sector_dummies"`
	VIXValues       []*float64 `json:"vix_values"`
	Momentums       []*float64 `json:"momentums"`
}

// Len returns the number of observations.
func (r Request) Len() int {
	return len(r.AbnormalReturns)
}

// Sectors maps tickers to sector names.
type Sectors map[string]string

// Lookup returns the normalized sector of ticker.
func (s Sectors) Lookup(ticker string) (string, bool) {
	v, ok := s[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return "", false
	}
	return normalizeSector(v), true
}

func normalizeSector(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// BuildRequest converts rows into the regression request. The sector dummy is
// 1 for tickers whose sector is in dummySectors, 0 for other known sectors and
// null when the sector is unknown.
func BuildRequest(rows []domain.FeatureRow, sectors Sectors, dummySectors []string) Request {
	dummy := make(map[string]struct{}, len(dummySectors))
	for _, s := range dummySectors {
		dummy[normalizeSector(s)] = struct{}{}
	}

	n := len(rows)
	req := Request{
		AbnormalReturns: make([]*float64, 0, n),
		SentimentScores: make([]*float64, 0, n),
		SectorDummies:   make([]*float64, 0, n),
		VIXValues:       make([]*float64, 0, n),
		Momentums:       make([]*float64, 0, n),
	}
	for _, r := range rows {
		req.AbnormalReturns = append(req.AbnormalReturns, r.AbnormalReturn.Ptr())
		req.SentimentScores = append(req.SentimentScores, r.SentimentScore.Ptr())
		req.VIXValues = append(req.VIXValues, r.VIX.Ptr())
		req.Momentums = append(req.Momentums, r.Momentum.Ptr())

		var d domain.Float
		if sector, ok := sectors.Lookup(r.Ticker); ok {
			d = domain.Some(0)
			if _, hit := dummy[sector]; hit {
				d = domain.Some(1)
			}
		}
		req.SectorDummies = append(req.SectorDummies, d.Ptr())
	}
	return req
}
