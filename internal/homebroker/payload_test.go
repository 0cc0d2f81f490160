package homebroker

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOptionRowToUpdate(t *testing.T) {
	raw := `{
		"symbol": "GFGC40000OC",
		"bid_size": 10,
		"bid": 120.5,
		"ask": 121,
		"ask_size": 5,
		"last": 120.75,
		"change": 2.5,
		"datetime": "2025-03-10 14:30:00",
		"expiration": "2025-10-17",
		"strike": 40000,
		"kind": "CALL"
	}`
	var row optionRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	update := row.toUpdate()
	if update.Symbol != "GFGC40000OC" {
		t.Errorf("symbol = %q", update.Symbol)
	}
	if update.Bid == nil || *update.Bid != 120.5 {
		t.Errorf("bid = %v", update.Bid)
	}
	if update.BidSize == nil || *update.BidSize != 10 {
		t.Errorf("bidsize = %v", update.BidSize)
	}
	if update.Open != nil {
		t.Errorf("absent open should stay nil, got %v", *update.Open)
	}
	want := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if update.Datetime == nil || !update.Datetime.Equal(want) {
		t.Errorf("datetime = %v, want %v", update.Datetime, want)
	}
}

func TestOptionRowBadDatetime(t *testing.T) {
	row := optionRow{Symbol: "GFGV38000OC", Datetime: "not-a-time"}
	if got := row.toUpdate().Datetime; got != nil {
		t.Errorf("unparseable datetime should map to nil, got %v", got)
	}
}

func TestSecurityRowToUpdate(t *testing.T) {
	raw := `{"symbol": "GGAL", "settlement": "24hs", "last": 4500, "change": 1.2}`
	var row securityRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	update := row.toUpdate()
	if update.Symbol != "GGAL" || update.Settlement != "24hs" {
		t.Errorf("identity = %q/%q", update.Symbol, update.Settlement)
	}
	if update.Last == nil || *update.Last != 4500 {
		t.Errorf("last = %v", update.Last)
	}
	if update.Volume != nil {
		t.Error("absent volume should stay nil")
	}
}

func TestRepoRowToUpdate(t *testing.T) {
	raw := `{"symbol": "CAUCION PESOS", "settlement": "2025-03-13", "last": 35.5, "bid_rate": 34}`
	var row repoRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	update, ok := row.toUpdate()
	if !ok {
		t.Fatal("expected parseable settlement")
	}
	want := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	if !update.Settlement.Equal(want) {
		t.Errorf("settlement = %v, want %v", update.Settlement, want)
	}
	if update.Last == nil || *update.Last != 35.5 {
		t.Errorf("last = %v", update.Last)
	}
}

func TestRepoRowRejectsBadSettlement(t *testing.T) {
	row := repoRow{Symbol: "CAUCION PESOS", Settlement: "13/03/2025"}
	if _, ok := row.toUpdate(); ok {
		t.Error("expected rejection of unparseable settlement date")
	}
}

func TestEnvelopeDecoding(t *testing.T) {
	raw := `{"channel": "options", "quotes": [{"symbol": "GFGC40000OC", "last": 1}]}`
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Channel != channelOptions {
		t.Errorf("channel = %q", env.Channel)
	}

	var rows []optionRow
	if err := json.Unmarshal(env.Quotes, &rows); err != nil {
		t.Fatalf("unmarshal quotes: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "GFGC40000OC" {
		t.Errorf("rows = %+v", rows)
	}
}
