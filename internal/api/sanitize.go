package api

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

// maxRepresentable bounds values the JSON layer will emit. The provider
// occasionally sends sentinel garbage in the 1e15+ range; clients want
// null there, not a bogus quote.
const maxRepresentable = 1e15

// cleanNumber maps NaN, infinities and out-of-range values to null.
func cleanNumber(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxRepresentable {
		return nil
	}
	return v
}

func cleanTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

func optionJSON(row models.OptionQuote) gin.H {
	return gin.H{
		"symbol":         row.Symbol,
		"bidsize":        cleanNumber(row.BidSize),
		"bid":            cleanNumber(row.Bid),
		"ask":            cleanNumber(row.Ask),
		"asksize":        cleanNumber(row.AskSize),
		"last":           cleanNumber(row.Last),
		"change":         cleanNumber(row.Change),
		"open":           cleanNumber(row.Open),
		"high":           cleanNumber(row.High),
		"low":            cleanNumber(row.Low),
		"previous_close": cleanNumber(row.PreviousClose),
		"turnover":       cleanNumber(row.Turnover),
		"volume":         cleanNumber(row.Volume),
		"operations":     cleanNumber(row.Operations),
		"datetime":       cleanTime(row.Datetime),
	}
}

func securityJSON(row models.SecurityQuote) gin.H {
	return gin.H{
		"symbol":         row.Symbol,
		"bid_size":       cleanNumber(row.BidSize),
		"bid":            cleanNumber(row.Bid),
		"ask":            cleanNumber(row.Ask),
		"ask_size":       cleanNumber(row.AskSize),
		"last":           cleanNumber(row.Last),
		"change":         cleanNumber(row.Change),
		"open":           cleanNumber(row.Open),
		"high":           cleanNumber(row.High),
		"low":            cleanNumber(row.Low),
		"previous_close": cleanNumber(row.PreviousClose),
		"turnover":       cleanNumber(row.Turnover),
		"volume":         cleanNumber(row.Volume),
		"operations":     cleanNumber(row.Operations),
		"datetime":       cleanTime(row.Datetime),
	}
}

func repoJSON(row models.RepoRate) gin.H {
	return gin.H{
		"settlement": row.Settlement.Format("2006-01-02"),
		"last":       cleanNumber(row.Last),
		"turnover":   cleanNumber(row.Turnover),
		"bid_amount": cleanNumber(row.BidAmount),
		"bid_rate":   cleanNumber(row.BidRate),
		"ask_rate":   cleanNumber(row.AskRate),
		"ask_amount": cleanNumber(row.AskAmount),
	}
}

func barJSON(bar models.Bar) gin.H {
	out := gin.H{
		"date":   bar.Date.Format("2006-01-02 15:04:05"),
		"open":   cleanNumber(bar.Open),
		"high":   cleanNumber(bar.High),
		"low":    cleanNumber(bar.Low),
		"close":  cleanNumber(bar.Close),
		"volume": cleanNumber(bar.Volume),
	}
	if bar.Change != nil {
		out["change"] = cleanNumber(*bar.Change)
	}
	return out
}

func optionsJSON(rows []models.OptionQuote) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, optionJSON(row))
	}
	return out
}

func securitiesJSON(rows []models.SecurityQuote) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, securityJSON(row))
	}
	return out
}

func reposJSON(rows []models.RepoRate) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, repoJSON(row))
	}
	return out
}

func barsJSON(bars []models.Bar) []gin.H {
	out := make([]gin.H, 0, len(bars))
	for _, bar := range bars {
		out = append(out, barJSON(bar))
	}
	return out
}

func batchJSON(results map[string][]models.Bar) gin.H {
	out := make(gin.H, len(results))
	for symbol, bars := range results {
		out[symbol] = barsJSON(bars)
	}
	return out
}
