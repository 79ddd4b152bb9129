package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/schedule"
)

// MemoryEntryRepository keeps entries in process memory.
// It backs tests and the CLI dry run; nothing survives a restart.
type MemoryEntryRepository struct {
	mu      sync.Mutex
	entries []Entry
	idGen   generator.Generator[string]
	now     func() time.Time
}

func NewMemoryEntryRepository(idGen generator.Generator[string]) *MemoryEntryRepository {
	if idGen == nil {
		idGen = &generator.UUIDV4Generator{}
	}
	return &MemoryEntryRepository{idGen: idGen, now: time.Now}
}

func (r *MemoryEntryRepository) List(ctx context.Context, ownerID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []Entry
	for _, e := range r.entries {
		if e.OwnerID == ownerID {
			entries = append(entries, e)
		}
	}
	SortEntries(entries)
	return entries, nil
}

func (r *MemoryEntryRepository) Count(ctx context.Context, ownerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, e := range r.entries {
		if e.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryEntryRepository) Owners(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var owners []string
	for _, e := range r.entries {
		if !slices.Contains(owners, e.OwnerID) {
			owners = append(owners, e.OwnerID)
		}
	}
	slices.Sort(owners)
	return owners, nil
}

func (r *MemoryEntryRepository) Add(ctx context.Context, ownerID string, rule schedule.Rule) (Entry, error) {
	id, err := r.idGen.Next()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	e := Entry{ID: id, OwnerID: ownerID, Rule: rule, CreatedAt: now, UpdatedAt: now}
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *MemoryEntryRepository) Update(ctx context.Context, ownerID, id string, rule schedule.Rule) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(ownerID, id)
	if i < 0 {
		return false, nil
	}
	r.entries[i].Rule = rule
	r.entries[i].UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryEntryRepository) Remove(ctx context.Context, ownerID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(ownerID, id)
	if i < 0 {
		return false, nil
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	return true, nil
}

func (r *MemoryEntryRepository) indexLocked(ownerID, id string) int {
	return slices.IndexFunc(r.entries, func(e Entry) bool {
		return e.ID == id && e.OwnerID == ownerID
	})
}

var _ EntryRepository = (*MemoryEntryRepository)(nil)
