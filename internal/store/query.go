package store

import (
	"strings"

	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/models"
)

// securityTypeSuffixes maps recognized security types to the key
// suffixes they match. Every recognized type currently resolves to the
// same suffix set, mirroring the behavior of the upstream service.
var securityTypeSuffixes = map[string][]string{
	"acciones":      settlementSuffixes,
	"bonos":         settlementSuffixes,
	"cedears":       settlementSuffixes,
	"letras":        settlementSuffixes,
	"ons":           settlementSuffixes,
	"panel_general": settlementSuffixes,
}

// GetOptions returns a snapshot of the option table. Ticker wins over
// prefix; with neither given, the configured default prefixes apply (or
// the whole table when none are configured).
func (s *Store) GetOptions(prefix, ticker string) []models.OptionQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OptionQuote, 0, len(s.options))
	switch {
	case ticker != "":
		want := strings.ToUpper(ticker)
		if row, ok := s.options[want]; ok {
			out = append(out, row)
		}
	case prefix != "":
		want := strings.ToUpper(prefix)
		for symbol, row := range s.options {
			if strings.HasPrefix(symbol, want) {
				out = append(out, row)
			}
		}
	case len(s.optionPrefixes) > 0:
		for symbol, row := range s.options {
			if hasAnyPrefix(symbol, s.optionPrefixes) {
				out = append(out, row)
			}
		}
	default:
		for _, row := range s.options {
			out = append(out, row)
		}
	}
	return sortedOptions(out)
}

// GetSecurities returns a snapshot of the security table. Ticker is a
// case-insensitive substring match on the composite key; the type filter
// restricts to rows carrying a settlement suffix.
func (s *Store) GetSecurities(ticker, securityType string) []models.SecurityQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SecurityQuote, 0, len(s.securities))
	switch {
	case ticker != "":
		want := strings.ToUpper(ticker)
		for key, row := range s.securities {
			if strings.Contains(key, want) {
				out = append(out, row)
			}
		}
	case securityType != "":
		suffixes, ok := securityTypeSuffixes[securityType]
		if !ok {
			// Unrecognized types fall through unfiltered.
			for _, row := range s.securities {
				out = append(out, row)
			}
			break
		}
		for key, row := range s.securities {
			if containsAny(key, suffixes) {
				out = append(out, row)
			}
		}
	default:
		for _, row := range s.securities {
			out = append(out, row)
		}
	}
	return sortedSecurities(out)
}

// GetStocks returns the stock-like subset of the security table: rows
// whose key carries a settlement suffix. Filters apply to the key with
// the suffix stripped, so "GGAL" matches "GGAL - 24hs" and "GGAL - SPOT".
func (s *Store) GetStocks(prefix, ticker string) []models.SecurityQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SecurityQuote, 0, len(s.securities))
	for key, row := range s.securities {
		if !containsAny(key, settlementSuffixes) {
			continue
		}
		base := stripSettlementSuffix(key)
		switch {
		case ticker != "":
			if base == strings.ToUpper(ticker) {
				out = append(out, row)
			}
		case prefix != "":
			if strings.HasPrefix(base, strings.ToUpper(prefix)) {
				out = append(out, row)
			}
		case len(s.stockPrefixes) > 0:
			if hasAnyPrefix(base, s.stockPrefixes) {
				out = append(out, row)
			}
		default:
			out = append(out, row)
		}
	}
	return sortedSecurities(out)
}

// AllOptions returns the entire option table, bypassing the configured
// default prefixes.
func (s *Store) AllOptions() []models.OptionQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OptionQuote, 0, len(s.options))
	for _, row := range s.options {
		out = append(out, row)
	}
	return sortedOptions(out)
}

// AllSecurities returns the entire security table.
func (s *Store) AllSecurities() []models.SecurityQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SecurityQuote, 0, len(s.securities))
	for _, row := range s.securities {
		out = append(out, row)
	}
	return sortedSecurities(out)
}

// AllStocks returns every security row carrying a settlement suffix,
// bypassing the configured default prefixes.
func (s *Store) AllStocks() []models.SecurityQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SecurityQuote, 0, len(s.securities))
	for key, row := range s.securities {
		if containsAny(key, settlementSuffixes) {
			out = append(out, row)
		}
	}
	return sortedSecurities(out)
}

// GetCauciones returns a full copy of the repo table.
func (s *Store) GetCauciones() []models.RepoRate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RepoRate, 0, len(s.repos))
	for _, row := range s.repos {
		out = append(out, row)
	}
	return sortedRepos(out)
}

func containsAny(key string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.Contains(key, suffix) {
			return true
		}
	}
	return false
}

func stripSettlementSuffix(key string) string {
	for _, suffix := range settlementSuffixes {
		key = strings.ReplaceAll(key, suffix, "")
	}
	return key
}
