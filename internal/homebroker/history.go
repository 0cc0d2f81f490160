package homebroker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

type historyRow struct {
	Date   string  `json:"Fecha"`
	Open   float64 `json:"Apertura"`
	High   float64 `json:"Maximo"`
	Low    float64 `json:"Minimo"`
	Close  float64 `json:"Cierre"`
	Volume float64 `json:"Volumen"`
}

type historyResponse struct {
	Success bool         `json:"Success"`
	Error   string       `json:"Error"`
	Result  []historyRow `json:"Result"`
}

// GetDailyHistory fetches one daily OHLCV bar per trading day in
// [from, to] for a single symbol. Bars come back sorted by date.
func (c *Client) GetDailyHistory(ctx context.Context, symbol, settlement string, from, to time.Time) ([]models.Bar, error) {
	form := url.Values{}
	form.Set("symbol", strings.ToUpper(symbol))
	form.Set("settlement", settlement)
	form.Set("from", from.Format(dateLayout))
	form.Set("to", to.Format(dateLayout))

	rows, err := c.fetchHistory(ctx, "/Information/StockPriceHistory", form)
	if err != nil {
		return nil, err
	}
	return barsFromRows(rows, "2006-01-02T15:04:05")
}

// GetIntradayHistory fetches the current session's intraday bars for a
// single symbol.
func (c *Client) GetIntradayHistory(ctx context.Context, symbol string) ([]models.Bar, error) {
	form := url.Values{}
	form.Set("symbol", strings.ToUpper(symbol))

	rows, err := c.fetchHistory(ctx, "/Information/IntradayPrices", form)
	if err != nil {
		return nil, err
	}
	return barsFromRows(rows, "2006-01-02T15:04:05")
}

func (c *Client) fetchHistory(ctx context.Context, path string, form url.Values) ([]historyRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating history request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history request rejected (%d): %s", resp.StatusCode, body)
	}

	var result historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("history request failed: %s", result.Error)
	}
	return result.Result, nil
}

func barsFromRows(rows []historyRow, layout string) ([]models.Bar, error) {
	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(layout, row.Date)
		if err != nil {
			// Some endpoints return date-only values.
			date, err = time.Parse(dateLayout, row.Date)
			if err != nil {
				return nil, fmt.Errorf("parse bar date %q: %w", row.Date, err)
			}
		}
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
