package repository_test

import (
	"testing"

	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreTimestamps = cmpopts.IgnoreFields(repository.Entry{}, "CreatedAt", "UpdatedAt")

// testEntryRepository runs the behaviour every EntryRepository must share.
// Each subtest uses its own owner so a single store can serve all of them.
func testEntryRepository(t *testing.T, repo repository.EntryRepository) {
	ctx := t.Context()

	monday := schedule.Rule{Weekday: schedule.Monday, Hour: 10, Minute: 30, LeadMinutes: 15}
	earlyMonday := schedule.Rule{Weekday: schedule.Monday, Hour: 7, Minute: 0, LeadMinutes: 60}
	friday := schedule.Rule{Weekday: schedule.Friday, Hour: 18, Minute: 0, LeadMinutes: 30}

	t.Run("Add assigns ids and List returns entries in display order", func(t *testing.T) {
		owner := "owner-order"
		var added []repository.Entry
		for _, rule := range []schedule.Rule{friday, monday, earlyMonday} {
			e, err := repo.Add(ctx, owner, rule)
			if err != nil {
				t.Fatalf("failed to add entry: %v", err)
			}
			if e.ID == "" {
				t.Fatalf("expected an id to be assigned")
			}
			added = append(added, e)
		}

		got, err := repo.List(ctx, owner)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		want := []repository.Entry{added[2], added[1], added[0]}
		if diff := cmp.Diff(want, got, ignoreTimestamps); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Identical rules keep insertion order", func(t *testing.T) {
		owner := "owner-ties"
		first, err := repo.Add(ctx, owner, monday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}
		second, err := repo.Add(ctx, owner, monday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}
		if first.ID == second.ID {
			t.Fatalf("expected distinct ids, got %s twice", first.ID)
		}

		got, err := repo.List(ctx, owner)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if diff := cmp.Diff([]repository.Entry{first, second}, got, ignoreTimestamps); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Count and Owners reflect stored entries", func(t *testing.T) {
		for range 3 {
			if _, err := repo.Add(ctx, "owner-count", friday); err != nil {
				t.Fatalf("failed to add entry: %v", err)
			}
		}

		count, err := repo.Count(ctx, "owner-count")
		if err != nil {
			t.Fatalf("failed to count entries: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 entries, got %d", count)
		}

		none, err := repo.Count(ctx, "owner-nobody")
		if err != nil {
			t.Fatalf("failed to count entries: %v", err)
		}
		if none != 0 {
			t.Errorf("expected 0 entries, got %d", none)
		}

		owners, err := repo.Owners(ctx)
		if err != nil {
			t.Fatalf("failed to list owners: %v", err)
		}
		for _, want := range []string{"owner-count", "owner-order", "owner-ties"} {
			if !containsString(owners, want) {
				t.Errorf("expected owners %v to contain %s", owners, want)
			}
		}
	})

	t.Run("Update replaces the rule in place", func(t *testing.T) {
		owner := "owner-update"
		e, err := repo.Add(ctx, owner, monday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}

		ok, err := repo.Update(ctx, owner, e.ID, friday)
		if err != nil {
			t.Fatalf("failed to update entry: %v", err)
		}
		if !ok {
			t.Fatalf("expected update to find the entry")
		}

		got, err := repo.List(ctx, owner)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		want := []repository.Entry{{ID: e.ID, OwnerID: owner, Rule: friday}}
		if diff := cmp.Diff(want, got, ignoreTimestamps); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Update and Remove report missing entries", func(t *testing.T) {
		e, err := repo.Add(ctx, "owner-missing", monday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}

		if ok, err := repo.Update(ctx, "owner-missing", "no-such-id", friday); err != nil || ok {
			t.Errorf("expected (false, nil) for unknown id, got (%v, %v)", ok, err)
		}
		if ok, err := repo.Update(ctx, "owner-other", e.ID, friday); err != nil || ok {
			t.Errorf("expected (false, nil) for foreign owner, got (%v, %v)", ok, err)
		}
		if ok, err := repo.Remove(ctx, "owner-other", e.ID); err != nil || ok {
			t.Errorf("expected (false, nil) for foreign owner, got (%v, %v)", ok, err)
		}
	})

	t.Run("Remove deletes only the addressed entry", func(t *testing.T) {
		owner := "owner-remove"
		keep, err := repo.Add(ctx, owner, monday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}
		drop, err := repo.Add(ctx, owner, friday)
		if err != nil {
			t.Fatalf("failed to add entry: %v", err)
		}

		ok, err := repo.Remove(ctx, owner, drop.ID)
		if err != nil {
			t.Fatalf("failed to remove entry: %v", err)
		}
		if !ok {
			t.Fatalf("expected remove to find the entry")
		}
		if ok, _ := repo.Remove(ctx, owner, drop.ID); ok {
			t.Errorf("expected second remove to report a missing entry")
		}

		got, err := repo.List(ctx, owner)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if diff := cmp.Diff([]repository.Entry{keep}, got, ignoreTimestamps); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
