package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

func snapshot() core.Snapshot {
	return core.Snapshot{
		Incomes: []core.IncomeEntry{
			{ID: "i1", Description: "Salário", Amount: core.Money{Cents: 500000}},
		},
		Expenses: []core.ExpenseEntry{
			{ID: "e1", Category: "🍔 Alimentação", Description: "Mercado", Amount: core.Money{Cents: 45050}, Status: core.Pending},
		},
		LastUpdate: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLoadNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Save(ctx, "u1", snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Incomes) != 1 || got.Incomes[0].Amount.Cents != 500000 {
		t.Fatalf("unexpected incomes: %+v", got.Incomes)
	}
	if len(got.Expenses) != 1 || got.Expenses[0].Status != core.Pending {
		t.Fatalf("unexpected expenses: %+v", got.Expenses)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	snap := snapshot()
	if err := s.Save(ctx, "u1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	first, _ := s.RawDocument("u1")
	if err := s.Save(ctx, "u1", snap); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, _ := s.RawDocument("u1")
	if !bytes.Equal(first, second) {
		t.Fatalf("re-saving identical snapshot changed the document:\n%s\n%s", first, second)
	}
}

func TestSaveMergesAroundUnrelatedFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SetExtraField("u1", "lastLogin", "2026-08-31")

	if err := s.Save(ctx, "u1", snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v, ok := s.ExtraField("u1", "lastLogin"); !ok || v != "2026-08-31" {
		t.Fatalf("unrelated field lost on save: %q %v", v, ok)
	}
}

func TestNotificationsNewestFirstLimited(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		n := core.Notification{
			ID:        string(rune('a' + i)),
			OwnerID:   "u1",
			Title:     "t",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			DedupKey:  string(rune('a' + i)),
		}
		if err := s.Append(ctx, n); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListRecent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected page of 10, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatal("notifications not newest-first")
		}
	}
}

func TestNotificationExists(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := core.Notification{ID: "n1", OwnerID: "u1", DedupKey: "e1@2026-09-03"}
	if err := s.Append(ctx, n); err != nil {
		t.Fatalf("append: %v", err)
	}
	ok, err := s.Exists(ctx, "u1", "e1@2026-09-03")
	if err != nil || !ok {
		t.Fatalf("expected existing key, got %v %v", ok, err)
	}
	ok, err = s.Exists(ctx, "u2", "e1@2026-09-03")
	if err != nil || ok {
		t.Fatal("dedup keys are scoped per owner")
	}
}

func TestAdminRegistry(t *testing.T) {
	s := New()
	ctx := context.Background()
	if ok, _ := s.IsAdmin(ctx, "u1"); ok {
		t.Fatal("unknown user must not be admin")
	}
	s.GrantAdmin("u1")
	if ok, _ := s.IsAdmin(ctx, "u1"); !ok {
		t.Fatal("granted user must be admin")
	}
}
