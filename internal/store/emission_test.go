package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository(t *testing.T) {
	repo := newTestStore(t).Sessions()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := repo.Create(&Session{ID: "s1", UserID: "u1", StartedAt: start}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(&Session{ID: "s2", StartedAt: start.Add(time.Hour)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("s1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != "u1" || !got.StartedAt.Equal(start) || got.EndedAt != nil {
		t.Errorf("GetByID() = %+v", got)
	}

	end := start.Add(10 * time.Minute)
	if err := repo.End("s1", end); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, _ = repo.GetByID("s1")
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}

	if err := repo.End("missing", end); !errors.Is(err, ErrNotFound) {
		t.Errorf("End() error = %v, want ErrNotFound", err)
	}

	list, err := repo.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "s2" {
		t.Errorf("List() = %+v, want s2 first", list)
	}
}

func TestEmissionRepository(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "s1", UserID: "u1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := s.Emissions()
	for i, label := range []string{"H", "I", "SPACE"} {
		e := &Emission{
			SessionID:  "s1",
			UserID:     "u1",
			Label:      label,
			Kind:       "sign",
			Confidence: 0.9,
			Sentence:   "HI",
			EmittedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if e.ID == 0 {
			t.Error("Append() should set ID")
		}
	}

	got, err := repo.ListBySession("s1", 10)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d emissions, want 3", len(got))
	}
	if got[0].Label != "SPACE" || got[2].Label != "H" {
		t.Errorf("emissions not newest-first: %v, %v", got[0].Label, got[2].Label)
	}

	limited, _ := repo.ListBySession("s1", 2)
	if len(limited) != 2 {
		t.Errorf("limit ignored: got %d", len(limited))
	}

	other, _ := repo.ListBySession("s2", 10)
	if len(other) != 0 {
		t.Errorf("unknown session returned %d emissions", len(other))
	}
}

func TestEmissionRepository_PruneBefore(t *testing.T) {
	s := newTestStore(t)
	s.Sessions().Create(&Session{ID: "s1"})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := s.Emissions()
	repo.Append(&Emission{SessionID: "s1", Label: "OLD", Kind: "sign", EmittedAt: now.AddDate(0, 0, -40)})
	repo.Append(&Emission{SessionID: "s1", Label: "NEW", Kind: "sign", EmittedAt: now.AddDate(0, 0, -1)})

	n, err := repo.PruneBefore(now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	left, _ := repo.ListBySession("s1", 10)
	if len(left) != 1 || left[0].Label != "NEW" {
		t.Errorf("remaining = %+v, want only NEW", left)
	}
}

func TestEmissionRepository_RequiresSession(t *testing.T) {
	repo := newTestStore(t).Emissions()
	err := repo.Append(&Emission{SessionID: "missing", Label: "A", Kind: "sign"})
	if err == nil {
		t.Error("expected foreign key error for unknown session")
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("auto_speak"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	if err := repo.Set("auto_speak", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("auto_speak", "false"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	repo.Set("volume", "40")

	if v, _ := repo.Get("auto_speak"); v != "false" {
		t.Errorf("Get() = %q, want false", v)
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 || all["volume"] != "40" {
		t.Errorf("All() = %v", all)
	}

	if err := repo.Delete("volume"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete("volume"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}
