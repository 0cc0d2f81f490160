package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

const dateKeyLayout = "2006-01-02"

// settlementSuffixes are the key suffixes that mark a security row as a
// stock-like settlement variant.
var settlementSuffixes = []string{" - 24hs", " - SPOT"}

// Store holds the three quote tables. All mutations and reads go through
// the table lock; read operations return copies, never live views.
type Store struct {
	mu         sync.Mutex
	options    map[string]models.OptionQuote
	securities map[string]models.SecurityQuote
	repos      map[string]models.RepoRate

	optionPrefixes []string
	stockPrefixes  []string
}

// New creates an empty store. The prefix lists double as the options
// admission filter and the default filters applied by unqualified reads.
func New(optionPrefixes, stockPrefixes []string) *Store {
	return &Store{
		options:        make(map[string]models.OptionQuote),
		securities:     make(map[string]models.SecurityQuote),
		repos:          make(map[string]models.RepoRate),
		optionPrefixes: normalizePrefixes(optionPrefixes),
		stockPrefixes:  normalizePrefixes(stockPrefixes),
	}
}

func normalizePrefixes(prefixes []string) []string {
	var out []string
	for _, p := range prefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyOptions merges an already-normalized option batch into the option
// table and returns the number of rows applied. Rows failing the
// configured prefix admission filter are skipped; unknown symbols insert
// only when the row carries data.
func (s *Store) ApplyOptions(quotes []models.OptionUpdate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, u := range quotes {
		symbol := strings.ToUpper(strings.TrimSpace(u.Symbol))
		if symbol == "" {
			continue
		}
		if len(s.optionPrefixes) > 0 && !hasAnyPrefix(symbol, s.optionPrefixes) {
			continue
		}

		row, ok := s.options[symbol]
		if !ok {
			if !optionHasData(u) {
				continue
			}
			row = models.OptionQuote{Symbol: symbol}
		}
		mergeOption(&row, u)
		s.options[symbol] = row
		applied++
	}
	return applied
}

// ApplySecurities merges a security batch. The settlement term is folded
// into the key so each settlement variant is its own row.
func (s *Store) ApplySecurities(quotes []models.SecurityUpdate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, u := range quotes {
		symbol := strings.ToUpper(strings.TrimSpace(u.Symbol))
		if symbol == "" {
			continue
		}
		key := symbol
		if settlement := strings.TrimSpace(u.Settlement); settlement != "" {
			key = symbol + " - " + settlement
		}

		row, ok := s.securities[key]
		if !ok {
			if !securityHasData(u) {
				continue
			}
			row = models.SecurityQuote{Symbol: key}
		}
		mergeSecurity(&row, u)
		s.securities[key] = row
		applied++
	}
	return applied
}

// ApplyRepos merges a repo batch. Only peso-denominated rows are
// admitted; the table is keyed by settlement date.
func (s *Store) ApplyRepos(quotes []models.RepoUpdate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, u := range quotes {
		if !strings.Contains(strings.ToUpper(u.Symbol), "PESOS") {
			continue
		}
		if u.Settlement.IsZero() {
			continue
		}
		key := u.Settlement.Format(dateKeyLayout)

		row, ok := s.repos[key]
		if !ok {
			if !repoHasData(u) {
				continue
			}
			row = models.RepoRate{Settlement: u.Settlement}
		}
		mergeRepo(&row, u)
		s.repos[key] = row
		applied++
	}
	return applied
}

func hasAnyPrefix(symbol string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}

func optionHasData(u models.OptionUpdate) bool {
	return u.BidSize != nil || u.Bid != nil || u.Ask != nil || u.AskSize != nil ||
		u.Last != nil || u.Change != nil || u.Open != nil || u.High != nil ||
		u.Low != nil || u.PreviousClose != nil || u.Turnover != nil ||
		u.Volume != nil || u.Operations != nil || u.Datetime != nil
}

func securityHasData(u models.SecurityUpdate) bool {
	return u.BidSize != nil || u.Bid != nil || u.Ask != nil || u.AskSize != nil ||
		u.Last != nil || u.Change != nil || u.Open != nil || u.High != nil ||
		u.Low != nil || u.PreviousClose != nil || u.Turnover != nil ||
		u.Volume != nil || u.Operations != nil || u.Datetime != nil
}

func repoHasData(u models.RepoUpdate) bool {
	return u.Last != nil || u.Turnover != nil || u.BidAmount != nil ||
		u.BidRate != nil || u.AskRate != nil || u.AskAmount != nil
}

func mergeOption(row *models.OptionQuote, u models.OptionUpdate) {
	setFloat(&row.BidSize, u.BidSize)
	setFloat(&row.Bid, u.Bid)
	setFloat(&row.Ask, u.Ask)
	setFloat(&row.AskSize, u.AskSize)
	setFloat(&row.Last, u.Last)
	setFloat(&row.Change, u.Change)
	setFloat(&row.Open, u.Open)
	setFloat(&row.High, u.High)
	setFloat(&row.Low, u.Low)
	setFloat(&row.PreviousClose, u.PreviousClose)
	setFloat(&row.Turnover, u.Turnover)
	setFloat(&row.Volume, u.Volume)
	setFloat(&row.Operations, u.Operations)
	setTime(&row.Datetime, u.Datetime)
}

func mergeSecurity(row *models.SecurityQuote, u models.SecurityUpdate) {
	setFloat(&row.BidSize, u.BidSize)
	setFloat(&row.Bid, u.Bid)
	setFloat(&row.Ask, u.Ask)
	setFloat(&row.AskSize, u.AskSize)
	setFloat(&row.Last, u.Last)
	setFloat(&row.Change, u.Change)
	setFloat(&row.Open, u.Open)
	setFloat(&row.High, u.High)
	setFloat(&row.Low, u.Low)
	setFloat(&row.PreviousClose, u.PreviousClose)
	setFloat(&row.Turnover, u.Turnover)
	setFloat(&row.Volume, u.Volume)
	setFloat(&row.Operations, u.Operations)
	setTime(&row.Datetime, u.Datetime)
}

func mergeRepo(row *models.RepoRate, u models.RepoUpdate) {
	setFloat(&row.Last, u.Last)
	setFloat(&row.Turnover, u.Turnover)
	setFloat(&row.BidAmount, u.BidAmount)
	setFloat(&row.BidRate, u.BidRate)
	setFloat(&row.AskRate, u.AskRate)
	setFloat(&row.AskAmount, u.AskAmount)
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setTime(dst *time.Time, src *time.Time) {
	if src != nil {
		*dst = *src
	}
}

// Counts returns the current size of each table.
func (s *Store) Counts() (options, securities, repos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.options), len(s.securities), len(s.repos)
}

func sortedOptions(rows []models.OptionQuote) []models.OptionQuote {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func sortedSecurities(rows []models.SecurityQuote) []models.SecurityQuote {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func sortedRepos(rows []models.RepoRate) []models.RepoRate {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Settlement.Before(rows[j].Settlement) })
	return rows
}
