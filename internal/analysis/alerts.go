package analysis

import "esgpulse/pkg/contracts/domain"

// Alert defaults.
const (
	DefaultAlertThreshold = -0.5
	AlertMessage          = "Negative ESG sentiment detected. Monitor closely."
)

// DefaultAlertSectors are the sectors monitored for negative sentiment.
var DefaultAlertSectors = []string{"energy", "consumer_goods"}

// AlertRecord is one scored ticker submitted for alerting.
type AlertRecord struct {
	Ticker         string       `json:"ticker" validate:"required,ticker"`
	SentimentScore domain.Float `json:"sentiment_score"`
	Sector         string       `json:"sector"`
}

// Alert flags a ticker.
type Alert struct {
	Ticker string `json:"ticker"`
	Alert  string `json:"alert"`
}

// AlertRules decides which records raise alerts.
type AlertRules struct {
	Threshold float64
	Sectors   []string
}

// DefaultAlertRules returns the stock rules.
func DefaultAlertRules() AlertRules {
	return AlertRules{Threshold: DefaultAlertThreshold, Sectors: DefaultAlertSectors}
}

// Evaluate returns an alert for every record with a score strictly below the
// threshold in a monitored sector. Records without a score never alert.
func (r AlertRules) Evaluate(records []AlertRecord) []Alert {
	monitored := make(map[string]struct{}, len(r.Sectors))
	for _, s := range r.Sectors {
		monitored[normalizeSector(s)] = struct{}{}
	}

	alerts := []Alert{}
	for _, rec := range records {
		score, ok := rec.SentimentScore.Get()
		if !ok || score >= r.Threshold {
			continue
		}
		if _, hit := monitored[normalizeSector(rec.Sector)]; !hit {
			continue
		}
		alerts = append(alerts, Alert{Ticker: rec.Ticker, Alert: AlertMessage})
	}
	return alerts
}
