package homebroker

import (
	"encoding/json"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

const (
	channelOptions    = "options"
	channelSecurities = "securities"
	channelRepos      = "repos"
	channelError      = "error"

	quoteTimeLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// envelope is the outer frame of every websocket message.
type envelope struct {
	Channel string          `json:"channel"`
	Quotes  json.RawMessage `json:"quotes"`
	Error   string          `json:"error"`
}

// optionRow is the provider column set for an option quote. Expiration,
// strike and kind arrive on the wire but are not carried into the cache.
type optionRow struct {
	Symbol        string   `json:"symbol"`
	BidSize       *float64 `json:"bid_size"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	AskSize       *float64 `json:"ask_size"`
	Last          *float64 `json:"last"`
	Change        *float64 `json:"change"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	PreviousClose *float64 `json:"previous_close"`
	Turnover      *float64 `json:"turnover"`
	Volume        *float64 `json:"volume"`
	Operations    *float64 `json:"operations"`
	Datetime      string   `json:"datetime"`
	Expiration    string   `json:"expiration"`
	Strike        *float64 `json:"strike"`
	Kind          string   `json:"kind"`
}

type securityRow struct {
	Symbol        string   `json:"symbol"`
	Settlement    string   `json:"settlement"`
	BidSize       *float64 `json:"bid_size"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	AskSize       *float64 `json:"ask_size"`
	Last          *float64 `json:"last"`
	Change        *float64 `json:"change"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	PreviousClose *float64 `json:"previous_close"`
	Turnover      *float64 `json:"turnover"`
	Volume        *float64 `json:"volume"`
	Operations    *float64 `json:"operations"`
	Datetime      string   `json:"datetime"`
}

// repoRow keeps only the columns the repo table stores; the rest of the
// provider column set (open/high/low/volume/operations/datetime) is
// dropped here.
type repoRow struct {
	Symbol     string   `json:"symbol"`
	Settlement string   `json:"settlement"`
	Last       *float64 `json:"last"`
	Turnover   *float64 `json:"turnover"`
	BidAmount  *float64 `json:"bid_amount"`
	BidRate    *float64 `json:"bid_rate"`
	AskRate    *float64 `json:"ask_rate"`
	AskAmount  *float64 `json:"ask_amount"`
}

func (r optionRow) toUpdate() models.OptionUpdate {
	return models.OptionUpdate{
		Symbol:        r.Symbol,
		BidSize:       r.BidSize,
		Bid:           r.Bid,
		Ask:           r.Ask,
		AskSize:       r.AskSize,
		Last:          r.Last,
		Change:        r.Change,
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		PreviousClose: r.PreviousClose,
		Turnover:      r.Turnover,
		Volume:        r.Volume,
		Operations:    r.Operations,
		Datetime:      parseQuoteTime(r.Datetime),
	}
}

func (r securityRow) toUpdate() models.SecurityUpdate {
	return models.SecurityUpdate{
		Symbol:        r.Symbol,
		Settlement:    r.Settlement,
		BidSize:       r.BidSize,
		Bid:           r.Bid,
		Ask:           r.Ask,
		AskSize:       r.AskSize,
		Last:          r.Last,
		Change:        r.Change,
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		PreviousClose: r.PreviousClose,
		Turnover:      r.Turnover,
		Volume:        r.Volume,
		Operations:    r.Operations,
		Datetime:      parseQuoteTime(r.Datetime),
	}
}

func (r repoRow) toUpdate() (models.RepoUpdate, bool) {
	settlement, err := time.Parse(dateLayout, r.Settlement)
	if err != nil {
		return models.RepoUpdate{}, false
	}
	return models.RepoUpdate{
		Symbol:     r.Symbol,
		Settlement: settlement,
		Last:       r.Last,
		Turnover:   r.Turnover,
		BidAmount:  r.BidAmount,
		BidRate:    r.BidRate,
		AskRate:    r.AskRate,
		AskAmount:  r.AskAmount,
	}, true
}

func parseQuoteTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(quoteTimeLayout, value)
	if err != nil {
		return nil
	}
	return &t
}
