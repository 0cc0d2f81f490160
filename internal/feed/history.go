package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/homebroker"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

// reservedWords are routing keywords that can never be symbols; a
// request for one of them is a malformed URL, not a quote lookup.
var reservedWords = map[string]struct{}{
	"batch":  {},
	"prefix": {},
	"ticker": {},
	"all":    {},
}


// GetHistoricalData fetches daily bars for one symbol over the last
// `days` days and fills the day-over-day change on each bar. Settlement
// selects the delivery term; empty means "24hs".
func (s *Service) GetHistoricalData(ctx context.Context, symbol string, days int, settlement string) ([]models.Bar, error) {
	if err := s.validateSymbol(symbol); err != nil {
		return nil, err
	}
	days = s.clampDays(days)
	if settlement == "" {
		settlement = "24hs"
	}

	conn, err := s.currentConn()
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := s.historyContext(ctx)
	defer cancel()

	to := time.Now()
	from := to.AddDate(0, 0, -days)
	bars, err := conn.GetDailyHistory(ctx, symbol, settlement, from, to)
	if err != nil {
		return nil, fmt.Errorf("historical fetch for %s: %w", strings.ToUpper(symbol), err)
	}
	fillChange(bars)
	return bars, nil
}

// GetIntradayData fetches the current session's bars for one symbol.
func (s *Service) GetIntradayData(ctx context.Context, symbol string) ([]models.Bar, error) {
	if err := s.validateSymbol(symbol); err != nil {
		return nil, err
	}

	conn, err := s.currentConn()
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := s.historyContext(ctx)
	defer cancel()

	bars, err := conn.GetIntradayHistory(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("intraday fetch for %s: %w", strings.ToUpper(symbol), err)
	}
	return bars, nil
}

// GetHistoricalBatch fetches daily bars for each symbol sequentially,
// rate limited, and returns them keyed by upper-case symbol. A failed
// symbol maps to an empty slice; one symbol failing never aborts the
// rest.
func (s *Service) GetHistoricalBatch(ctx context.Context, symbols []string, days int, settlement string) map[string][]models.Bar {
	log := s.log.WithComponent("history")
	days = s.clampDays(days)

	results := make(map[string][]models.Bar, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		key := strings.ToUpper(strings.TrimSpace(symbol))
		bars, err := s.GetHistoricalData(ctx, symbol, days, settlement)
		if err != nil {
			log.WithField("symbol", key).WithError(err).Warn("batch symbol failed")
			bars = []models.Bar{}
		}
		results[key] = bars
	}
	return results
}

// GetIntradayBatch is the intraday counterpart of GetHistoricalBatch.
func (s *Service) GetIntradayBatch(ctx context.Context, symbols []string) map[string][]models.Bar {
	log := s.log.WithComponent("history")

	results := make(map[string][]models.Bar, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		key := strings.ToUpper(strings.TrimSpace(symbol))
		bars, err := s.GetIntradayData(ctx, symbol)
		if err != nil {
			log.WithField("symbol", key).WithError(err).Warn("batch symbol failed")
			bars = []models.Bar{}
		}
		results[key] = bars
	}
	return results
}

func (s *Service) validateSymbol(symbol string) error {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if _, reserved := reservedWords[symbol]; reserved {
		return fmt.Errorf("%q is not a symbol", symbol)
	}
	return nil
}

func (s *Service) clampDays(days int) int {
	if days <= 0 {
		days = 30
	}
	if max := s.cfg.History.MaxDays; max > 0 && days > max {
		days = max
	}
	return days
}

func (s *Service) currentConn() (homebroker.Conn, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("not connected to broker")
	}
	return s.conn, nil
}

func (s *Service) historyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.History.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// fillChange sets each bar's change to the fractional move against the
// previous bar's close. The first bar has no reference and stays nil.
func fillChange(bars []models.Bar) {
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		change := (bars[i].Close - prev) / prev
		bars[i].Change = &change
	}
}
