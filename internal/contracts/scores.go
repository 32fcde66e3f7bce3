package contracts

// CompositeScoreResult is the per-stock output of the composite scorer
type CompositeScoreResult struct {
	Code           string    `json:"code"`
	Name           string    `json:"name,omitempty"`
	ReferenceDate  Date      `json:"referenceDate"`
	MarketScore    float64   `json:"marketScore"`
	StockRawScore  float64   `json:"stockRawScore"`
	CompositeScore *float64  `json:"compositeScore"` // nil when not finite
	NextDayPct     *float64  `json:"nextDayPct"`
	Signals        SignalMap `json:"signals,omitempty"`
}

// Ranking is the ranked watchlist plus the dates a caller can pick from
type Ranking struct {
	Rows           []CompositeScoreResult `json:"rows"`
	AvailableDates []Date                 `json:"availableDates"`
}

// DateStat is one backtest day
type DateStat struct {
	Date        Date     `json:"date"`
	SampleCount int      `json:"sampleCount"`
	HitCount    int      `json:"hitCount"`
	HitRate     *float64 `json:"hitRate"`
}

// BacktestResult measures sign agreement between composite score and next-day return
type BacktestResult struct {
	WindowDays       int        `json:"windowDays"`
	PerDateStats     []DateStat `json:"perDateStats"`
	TotalSampleCount int        `json:"totalSampleCount"`
	TotalHitCount    int        `json:"totalHitCount"`
	OverallHitRate   *float64   `json:"overallHitRate"`
}
