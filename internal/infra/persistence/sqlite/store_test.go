package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tytell/fishdb/internal/core"
	"github.com/tytell/fishdb/internal/infra/persistence/sqlite"
	"github.com/tytell/fishdb/pkg/domain"
)

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishdb.sqlite")
	ctx := context.Background()

	store, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateSystem(domain.System{Name: "Rack1", Active: true}); err != nil {
			return err
		}
		system := "Rack1"
		tank := "T1"
		if _, err := tx.CreateTank(domain.Tank{Name: tank, Volume: 20, System: &system, Shelf: 1, PositionInShelf: 1, Active: true}); err != nil {
			return err
		}
		_, err := tx.CreateFish(domain.Fish{Base: domain.Base{ID: "F1"}, Species: "Danio rerio", Tank: &tank, Status: domain.StatusHealthy, NumberInGroup: 4})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	fish, ok := reopened.GetFish("F1")
	if !ok {
		t.Fatalf("fish not hydrated from disk")
	}
	if fish.NumberInGroup != 4 || fish.Tank == nil || *fish.Tank != "T1" {
		t.Fatalf("fish state wrong after reopen: %+v", fish)
	}
	if len(reopened.ListSystems()) != 1 || len(reopened.ListTanks()) != 1 {
		t.Fatalf("topology not hydrated")
	}
}

func TestBlockedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishdb.sqlite")
	ctx := context.Background()

	store, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// A regular tank without a system trips the topology rule.
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateTank(domain.Tank{Name: "orphan", Volume: 10, Shelf: 1, PositionInShelf: 1, Active: true})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if len(reopened.ListTanks()) != 0 {
		t.Fatalf("blocked write leaked to disk")
	}
}
