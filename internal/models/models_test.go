package models

import "testing"

func TestTransactionKind_String(t *testing.T) {
	tests := []struct {
		kind     TransactionKind
		expected string
	}{
		{Buy, "Buy"},
		{Sell, "Sell"},
		{TransactionKind(7), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.expected {
			t.Errorf("TransactionKind(%d).String() = %s; want %s", tc.kind, got, tc.expected)
		}
	}
}

func TestMetric_IsMoney(t *testing.T) {
	if (Metric{Value: 1.5}).IsMoney() {
		t.Error("unitless metric reported as money")
	}
	if !(Metric{Value: 1.5, CurrencyCode: "USD"}).IsMoney() {
		t.Error("money metric not reported as money")
	}
}

func TestPortfolio_Clone_IsDeep(t *testing.T) {
	orig := &Portfolio{
		Title: "Retirement",
		Metrics: map[string]Metric{
			"gain": {Value: 10, CurrencyCode: "USD", Amounts: []Money{{Amount: 10, CurrencyCode: "USD"}}},
		},
		Positions: map[string]*Position{
			"GOOG": {Symbol: "GOOG", Data: map[string]float64{"shares": 10}},
		},
	}

	c := orig.Clone()
	c.Metrics["gain"].Amounts[0].Amount = 99
	c.Positions["GOOG"].Data["shares"] = 20
	c.Positions["AAPL"] = &Position{Symbol: "AAPL"}

	if orig.Metrics["gain"].Amounts[0].Amount != 10 {
		t.Error("Clone() shares metric amounts with the original")
	}
	if orig.Positions["GOOG"].Data["shares"] != 10 {
		t.Error("Clone() shares position data with the original")
	}
	if _, ok := orig.Positions["AAPL"]; ok {
		t.Error("Clone() shares the position map with the original")
	}
}

func TestPortfolio_Clone_Nil(t *testing.T) {
	var p *Portfolio
	if p.Clone() != nil {
		t.Error("Clone() of nil portfolio is not nil")
	}
}
