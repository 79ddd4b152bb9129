package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Reconcile syncs every owner known to the repository or to the registry.
// At most the configured number of owners are synced concurrently.
// Failures for individual owners are joined; ErrClosed aborts the pass.
func (r *Registry) Reconcile(ctx context.Context) error {
	owners, err := r.repo.Owners(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminder owners: %w", err)
	}
	for _, id := range r.trackedOwners() {
		if !slices.Contains(owners, id) {
			owners = append(owners, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.reconcileConcurrency)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, ownerID := range owners {
		g.Go(func() error {
			err := r.Sync(gctx, ownerID)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, ErrClosed):
				return err
			}
			r.log.Error("failed to reconcile reminders", "owner_id", ownerID, "error", err)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.log.Info("Reconciled reminders", "owners", len(owners), "failed", len(errs))
	return errors.Join(errs...)
}
