package session

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

func TestServiceMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f := newFixture(t, Policy{Dedup: asset.RejectDuplicates}, WithMetrics(m))
	ctx := context.Background()

	sess := f.create(t)
	f.identify(t, sess.ID, true)
	f.identify(t, sess.ID, true)

	f.provider.fn = fixed(`{"manufacturer":"Error","message":"not an appliance"}`)
	if _, err := f.svc.Identify(ctx, sess.ID, []byte("jpeg"), "image/jpeg", false); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if _, err := f.svc.ResetLedger(ctx, sess.ID); err != nil {
		t.Fatalf("ResetLedger: %v", err)
	}
	if err := f.svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"created", m.SessionsTotal.WithLabelValues("created"), 1},
		{"ended", m.SessionsTotal.WithLabelValues("ended"), 1},
		{"valid critical", m.IdentificationsTotal.WithLabelValues("valid", string(asset.BandCritical)), 2},
		{"invalid", m.IdentificationsTotal.WithLabelValues("invalid", ""), 1},
		{"added", m.LedgerAddsTotal.WithLabelValues("added"), 1},
		{"duplicate", m.LedgerAddsTotal.WithLabelValues("duplicate"), 1},
		{"resets", m.LedgerResetsTotal, 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}
