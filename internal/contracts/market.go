package contracts

// FinancialReport is one quarterly report row
type FinancialReport struct {
	Code       string  `json:"code"`
	ReportDate Date    `json:"reportDate"`
	Revenue    float64 `json:"revenue"`
	NetProfit  float64 `json:"netProfit"`
}

// DailyBar is one daily price bar
type DailyBar struct {
	Code      string  `json:"code"`
	TradeDate Date    `json:"tradeDate"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Technicals is a code's moving averages on a date, joined with that day's close
type Technicals struct {
	Code      string  `json:"code"`
	TradeDate Date    `json:"tradeDate"`
	MA5       float64 `json:"ma5"`
	MA10      float64 `json:"ma10"`
	MA20      float64 `json:"ma20"`
	Close     float64 `json:"close"`
}

// StockMeta is display metadata joined onto code sets
type StockMeta struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Market       *string  `json:"market"`
	Industry     *string  `json:"industry"`
	Sector       *string  `json:"sector"`
	MarketCap    *float64 `json:"market_cap"`
	PE           *float64 `json:"pe"`
	PB           *float64 `json:"pb"`
	NetProfit    *float64 `json:"net_profit"`
	ProfitGrowth *float64 `json:"profit_growth"`
	LatestClose  *float64 `json:"latest_close"`
}

// WatchEntry is a watchlisted code with its company name
type WatchEntry struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Track    bool    `json:"track"`
	Market   *string `json:"market"`
	Industry *string `json:"industry"`
	Sector   *string `json:"sector"`
}

// ClosePair holds a code's close on its reference date and on the next trading date after it
type ClosePair struct {
	Close     *float64
	NextClose *float64
}
