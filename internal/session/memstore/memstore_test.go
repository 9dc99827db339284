package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/session"
)

func TestStore_PutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	sess := session.New("s-1", time.Now())
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.ID != "s-1" {
		t.Errorf("ID = %q, want %q", got.ID, "s-1")
	}
	if got.Ledger == nil || got.Ledger.Len() != 0 {
		t.Error("expected empty ledger")
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	sess := session.New("s-copy", time.Now())
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// mutating the caller's value after Put must not leak into the store
	_ = sess.Ledger.Add(asset.Valid(asset.Record{Manufacturer: "GE", HealthScore: 3}), asset.AllowDuplicates)
	sess.Transcript = append(sess.Transcript, session.Turn{Role: "user", Text: "hi"})

	got, _, _ := s.Get(ctx, "s-copy")
	if got.Ledger.Len() != 0 || len(got.Transcript) != 0 {
		t.Errorf("store shares state with caller: ledger=%d transcript=%d", got.Ledger.Len(), len(got.Transcript))
	}

	// and mutating a Get result must not leak either
	got.Current = &asset.Record{Manufacturer: "Carrier"}
	again, _, _ := s.Get(ctx, "s-copy")
	if again.Current != nil {
		t.Error("store shares state with Get result")
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Put(ctx, session.New("s-del", time.Now()))

	ok, err := s.Delete(ctx, "s-del")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Delete(ctx, "s-del")
	if err != nil || ok {
		t.Fatalf("second Delete = %v, %v; want false, nil", ok, err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", n)
			_ = s.Put(ctx, session.New(id, time.Now()))
			_, _, _ = s.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}

func TestStore_PruneIdle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	stale := session.New("stale", now.Add(-2*time.Hour))
	fresh := session.New("fresh", now)
	_ = s.Put(ctx, stale)
	_ = s.Put(ctx, fresh)

	n, err := s.PruneIdle(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneIdle: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if _, ok, _ := s.Get(ctx, "fresh"); !ok {
		t.Error("fresh session was pruned")
	}
}

var _ session.Pruner = (*Store)(nil)
