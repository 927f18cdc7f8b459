package bridge

import "testing"

func TestConnStatsTracksOpenAndTotal(t *testing.T) {
	var c ConnStats
	c.New()
	c.Open()
	c.New()
	c.Open()
	if got := c.String(); got != "[2/2]" {
		t.Fatalf("expected [2/2], got %s", got)
	}
	c.Close()
	if got := c.String(); got != "[1/2]" {
		t.Fatalf("expected [1/2], got %s", got)
	}
}
