package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/sakoon/console-backend/internal/session"
)

func TestApplyUpdatesGaugesAndCounters(t *testing.T) {
	c := NewCollector(nil)

	c.apply(session.Event{
		Type: session.EventConnected,
		Kind: session.Call,
		Stats: session.Stats{
			ActiveCalls:   2,
			ActiveChats:   1,
			WaitingQueue:  3,
			TodaysRevenue: decimal.NewFromInt(1300),
		},
	})

	if got := testutil.ToFloat64(activeCalls); got != 2 {
		t.Errorf("active calls gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(activeChats); got != 1 {
		t.Errorf("active chats gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(waitingQueue); got != 3 {
		t.Errorf("waiting queue gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(todaysRevenue); got != 1300 {
		t.Errorf("revenue gauge = %v, want 1300", got)
	}
	if got := testutil.ToFloat64(sessionsConnected.WithLabelValues("call")); got < 1 {
		t.Errorf("connected counter = %v, want >= 1", got)
	}
}

func TestApplyCountsByKind(t *testing.T) {
	c := NewCollector(nil)

	before := testutil.ToFloat64(sessionsExpired.WithLabelValues("chat"))
	c.apply(session.Event{Type: session.EventExpired, Kind: session.Chat})
	after := testutil.ToFloat64(sessionsExpired.WithLabelValues("chat"))

	if after != before+1 {
		t.Errorf("chat expiry counter went %v -> %v, want +1", before, after)
	}
}
