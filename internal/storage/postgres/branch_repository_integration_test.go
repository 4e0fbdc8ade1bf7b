package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

func TestBranchRepository_SaveGetListDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	truncateAllTables(t, store)

	repo := NewBranchRepository(store)
	ctx := context.Background()

	uptown := domain.Branch{
		ID:       uuid.NewString(),
		Name:     "Uptown",
		Location: "12 Hill Road",
		Active:   true,
	}
	downtown := domain.Branch{
		ID:       uuid.NewString(),
		Name:     "Downtown",
		Location: "1 Main Street",
		Active:   true,
	}
	for _, branch := range []domain.Branch{uptown, downtown} {
		if _, err := repo.Save(ctx, branch); err != nil {
			t.Fatalf("save branch %s: %v", branch.Name, err)
		}
	}

	got, err := repo.Get(ctx, uptown.ID)
	if err != nil {
		t.Fatalf("get branch: %v", err)
	}
	if got.Location != "12 Hill Road" || !got.Active {
		t.Fatalf("unexpected branch: %+v", got)
	}

	// Повторный Save работает как upsert.
	got.Active = false
	if _, err := repo.Save(ctx, got); err != nil {
		t.Fatalf("update branch: %v", err)
	}
	updated, err := repo.Get(ctx, uptown.ID)
	if err != nil {
		t.Fatalf("get updated branch: %v", err)
	}
	if updated.Active {
		t.Fatal("expected branch to be deactivated")
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list branches: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(listed))
	}
	if listed[0].Name != "Downtown" || listed[1].Name != "Uptown" {
		t.Fatalf("expected name ordering, got %s then %s", listed[0].Name, listed[1].Name)
	}

	if err := repo.Delete(ctx, downtown.ID); err != nil {
		t.Fatalf("delete branch: %v", err)
	}
	if err := repo.Delete(ctx, downtown.ID); !errors.Is(err, domain.ErrBranchNotFound) {
		t.Fatalf("expected ErrBranchNotFound on repeated delete, got %v", err)
	}
	if _, err := repo.Get(ctx, downtown.ID); !errors.Is(err, domain.ErrBranchNotFound) {
		t.Fatalf("expected ErrBranchNotFound after delete, got %v", err)
	}
}
