package models

import "time"

// OptionQuote is a stored option row, keyed by its uppercase symbol
// (e.g. "GFG24JAN17.50C"). Change is stored as a fraction, never as the
// raw provider percentage.
type OptionQuote struct {
	Symbol        string    `json:"symbol"`
	BidSize       float64   `json:"bidsize"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	AskSize       float64   `json:"asksize"`
	Last          float64   `json:"last"`
	Change        float64   `json:"change"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Turnover      float64   `json:"turnover"`
	Volume        float64   `json:"volume"`
	Operations    float64   `json:"operations"`
	Datetime      time.Time `json:"datetime"`
}

// SecurityQuote is a stored security row. The key encodes the settlement
// term ("GGAL - 24hs") so multiple settlement variants of the same
// underlying coexist in one table.
type SecurityQuote struct {
	Symbol        string    `json:"symbol"`
	BidSize       float64   `json:"bid_size"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	AskSize       float64   `json:"ask_size"`
	Last          float64   `json:"last"`
	Change        float64   `json:"change"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Turnover      float64   `json:"turnover"`
	Volume        float64   `json:"volume"`
	Operations    float64   `json:"operations"`
	Datetime      time.Time `json:"datetime"`
}

// RepoRate is a stored short-term repo ("caución") row, keyed by its
// settlement date. Rates are stored as fractions.
type RepoRate struct {
	Settlement time.Time `json:"settlement"`
	Last       float64   `json:"last"`
	Turnover   float64   `json:"turnover"`
	BidAmount  float64   `json:"bid_amount"`
	BidRate    float64   `json:"bid_rate"`
	AskRate    float64   `json:"ask_rate"`
	AskAmount  float64   `json:"ask_amount"`
}

// OptionUpdate is a partial inbound option row. Nil fields were absent
// from the provider message and must not overwrite stored values.
type OptionUpdate struct {
	Symbol        string
	BidSize       *float64
	Bid           *float64
	Ask           *float64
	AskSize       *float64
	Last          *float64
	Change        *float64
	Open          *float64
	High          *float64
	Low           *float64
	PreviousClose *float64
	Turnover      *float64
	Volume        *float64
	Operations    *float64
	Datetime      *time.Time
}

// SecurityUpdate is a partial inbound security row. Settlement arrives
// as a separate provider column and is folded into the key on ingestion.
type SecurityUpdate struct {
	Symbol        string
	Settlement    string
	BidSize       *float64
	Bid           *float64
	Ask           *float64
	AskSize       *float64
	Last          *float64
	Change        *float64
	Open          *float64
	High          *float64
	Low           *float64
	PreviousClose *float64
	Turnover      *float64
	Volume        *float64
	Operations    *float64
	Datetime      *time.Time
}

// RepoUpdate is a partial inbound repo row. Symbol carries the raw
// provider symbol (used for the currency admission filter), Settlement
// the settlement date that becomes the key.
type RepoUpdate struct {
	Symbol     string
	Settlement time.Time
	Last       *float64
	Turnover   *float64
	BidAmount  *float64
	BidRate    *float64
	AskRate    *float64
	AskAmount  *float64
}

// OptionBatch is one inbound options message as delivered on the channel.
type OptionBatch struct {
	Received time.Time
	Quotes   []OptionUpdate
}

// SecurityBatch is one inbound securities message.
type SecurityBatch struct {
	Received time.Time
	Quotes   []SecurityUpdate
}

// RepoBatch is one inbound repos message.
type RepoBatch struct {
	Received time.Time
	Quotes   []RepoUpdate
}

// FeedError is an error pushed by the connection onto the error channel.
type FeedError struct {
	Time    time.Time
	Message string
}
