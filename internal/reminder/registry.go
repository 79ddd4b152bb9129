package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/jonboulle/clockwork"
)

const (
	defaultNotifyTimeout        = 30 * time.Second
	defaultReconcileConcurrency = 8
)

// Registry owns the running reminder tasks of every attached owner and keeps
// them consistent with the repository.
type Registry struct {
	repo     repository.EntryRepository
	notifier Notifier
	quota    QuotaGuard
	log      *slog.Logger
	clock    clockwork.Clock
	loc      *time.Location

	notifyTimeout        time.Duration
	reconcileConcurrency int

	mu     sync.Mutex
	owners map[string]*ownerState
	closed bool
}

type ownerState struct {
	mu       sync.Mutex
	attached bool
	// removed is set once the state has been dropped from Registry.owners.
	removed bool
	// tasks are kept in display order.
	tasks []*task
}

type Option func(*Registry)

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithLocation sets the reference timezone rules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(r *Registry) { r.loc = loc }
}

func WithQuota(quota QuotaGuard) Option {
	return func(r *Registry) { r.quota = quota }
}

// WithNotifyTimeout bounds a single Notify call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(r *Registry) { r.notifyTimeout = d }
}

// WithReconcileConcurrency bounds how many owners Reconcile syncs at once.
func WithReconcileConcurrency(n int) Option {
	return func(r *Registry) { r.reconcileConcurrency = n }
}

func NewRegistry(repo repository.EntryRepository, notifier Notifier, opts ...Option) *Registry {
	r := &Registry{
		repo:                 repo,
		notifier:             notifier,
		quota:                QuotaGuard{Limit: MaxEntries},
		log:                  slog.Default(),
		clock:                clockwork.NewRealClock(),
		loc:                  time.UTC,
		notifyTimeout:        defaultNotifyTimeout,
		reconcileConcurrency: defaultReconcileConcurrency,
		owners:               make(map[string]*ownerState),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reconcileConcurrency < 1 {
		r.reconcileConcurrency = 1
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.notifyTimeout <= 0 {
		r.notifyTimeout = defaultNotifyTimeout
	}
	return r
}

// lockOwner returns the owner's state with its mutex held.
func (r *Registry) lockOwner(ownerID string) (*ownerState, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		o, ok := r.owners[ownerID]
		if !ok {
			o = &ownerState{}
			r.owners[ownerID] = o
		}
		r.mu.Unlock()

		o.mu.Lock()
		if !o.removed {
			return o, nil
		}
		// Detached while we waited; retry against a fresh state.
		o.mu.Unlock()
	}
}

// dropLocked stops the owner's tasks and forgets the owner.
// The caller holds o.mu.
func (r *Registry) dropLocked(ownerID string, o *ownerState) {
	stopAll(o.tasks)
	o.tasks = nil
	o.attached = false
	o.removed = true

	r.mu.Lock()
	if r.owners[ownerID] == o {
		delete(r.owners, ownerID)
	}
	r.mu.Unlock()
}

func stopAll(tasks []*task) {
	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

func sortTasks(tasks []*task) {
	slices.SortStableFunc(tasks, func(a, b *task) int {
		return repository.CompareEntries(a.entry, b.entry)
	})
}

func indexOf(tasks []*task, entryID string) int {
	return slices.IndexFunc(tasks, func(t *task) bool { return t.entry.ID == entryID })
}

// Attach loads the owner's persisted entries and restarts one task per entry.
// Tasks already running for the owner are cancelled and awaited first.
// Calling Attach twice leaves exactly one task per entry.
func (r *Registry) Attach(ctx context.Context, ownerID string) error {
	o, err := r.lockOwner(ownerID)
	if err != nil {
		return err
	}
	defer o.mu.Unlock()

	return r.attachLocked(ctx, ownerID, o)
}

func (r *Registry) attachLocked(ctx context.Context, ownerID string, o *ownerState) error {
	entries, err := r.repo.List(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load reminders for %s: %w", ownerID, err)
	}

	stopAll(o.tasks)
	o.tasks = make([]*task, 0, len(entries))
	for _, e := range entries {
		o.tasks = append(o.tasks, r.spawn(e))
	}
	sortTasks(o.tasks)
	o.attached = true

	r.log.Debug("Attached reminders", "owner_id", ownerID, "count", len(entries))
	return nil
}

func (r *Registry) ensureAttachedLocked(ctx context.Context, ownerID string, o *ownerState) error {
	if o.attached {
		return nil
	}
	return r.attachLocked(ctx, ownerID, o)
}

// Sync brings the owner's tasks in line with the repository. Tasks whose
// entry is unchanged keep running; changed or removed entries are stopped and
// new ones spawned. An owner with no entries left is dropped.
func (r *Registry) Sync(ctx context.Context, ownerID string) error {
	o, err := r.lockOwner(ownerID)
	if err != nil {
		return err
	}
	defer o.mu.Unlock()

	entries, err := r.repo.List(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load reminders for %s: %w", ownerID, err)
	}
	if len(entries) == 0 {
		r.dropLocked(ownerID, o)
		return nil
	}

	current := make(map[string]*task, len(o.tasks))
	for _, t := range o.tasks {
		current[t.entry.ID] = t
	}

	next := make([]*task, 0, len(entries))
	spawned := 0
	for _, e := range entries {
		if t, ok := current[e.ID]; ok {
			delete(current, e.ID)
			if t.entry.Rule == e.Rule {
				next = append(next, t)
				continue
			}
			t.stop()
		}
		next = append(next, r.spawn(e))
		spawned++
	}
	for _, t := range current {
		t.stop()
	}
	sortTasks(next)
	o.tasks = next
	o.attached = true

	if spawned > 0 || len(current) > 0 {
		r.log.Info("Synced reminders", "owner_id", ownerID, "spawned", spawned, "stopped", len(current))
	}
	return nil
}

// Detach stops the owner's tasks without touching the repository.
func (r *Registry) Detach(ctx context.Context, ownerID string) error {
	o, err := r.lockOwner(ownerID)
	if err != nil {
		return err
	}
	defer o.mu.Unlock()

	r.dropLocked(ownerID, o)
	return nil
}

// Add stores a new entry for the owner and starts its task.
func (r *Registry) Add(ctx context.Context, ownerID string, rule schedule.Rule) (repository.Entry, error) {
	if err := rule.Validate(); err != nil {
		return repository.Entry{}, err
	}

	o, err := r.lockOwner(ownerID)
	if err != nil {
		return repository.Entry{}, err
	}
	defer o.mu.Unlock()

	if err := r.ensureAttachedLocked(ctx, ownerID, o); err != nil {
		return repository.Entry{}, err
	}

	count, err := r.repo.Count(ctx, ownerID)
	if err != nil {
		return repository.Entry{}, fmt.Errorf("failed to count reminders for %s: %w", ownerID, err)
	}
	if err := r.quota.Check(ownerID, count); err != nil {
		return repository.Entry{}, err
	}

	entry, err := r.repo.Add(ctx, ownerID, rule)
	if err != nil {
		return repository.Entry{}, fmt.Errorf("failed to store reminder for %s: %w", ownerID, err)
	}

	o.tasks = append(o.tasks, r.spawn(entry))
	sortTasks(o.tasks)

	r.log.Info("Added reminder", "owner_id", ownerID, "entry_id", entry.ID, "rule", rule.String())
	return entry, nil
}

// Replace swaps the rule of an existing entry. The old task has exited before
// the new one starts. If the repository write fails the old task is restarted.
func (r *Registry) Replace(ctx context.Context, ownerID, entryID string, rule schedule.Rule) (repository.Entry, error) {
	if err := rule.Validate(); err != nil {
		return repository.Entry{}, err
	}

	o, err := r.lockOwner(ownerID)
	if err != nil {
		return repository.Entry{}, err
	}
	defer o.mu.Unlock()

	if err := r.ensureAttachedLocked(ctx, ownerID, o); err != nil {
		return repository.Entry{}, err
	}

	i := indexOf(o.tasks, entryID)
	if i < 0 {
		return repository.Entry{}, &NotFoundError{OwnerID: ownerID, EntryID: entryID}
	}
	old := o.tasks[i]
	old.stop()

	ok, err := r.repo.Update(ctx, ownerID, entryID, rule)
	if err != nil {
		o.tasks[i] = r.spawn(old.entry)
		return repository.Entry{}, fmt.Errorf("failed to update reminder %s: %w", entryID, err)
	}
	if !ok {
		o.tasks = slices.Delete(o.tasks, i, i+1)
		return repository.Entry{}, &NotFoundError{OwnerID: ownerID, EntryID: entryID}
	}

	updated := old.entry
	updated.Rule = rule
	updated.UpdatedAt = r.clock.Now().UTC()
	o.tasks[i] = r.spawn(updated)
	sortTasks(o.tasks)

	r.log.Info("Replaced reminder", "owner_id", ownerID, "entry_id", entryID, "rule", rule.String())
	return updated, nil
}

// Delete stops the entry's task and removes the entry from the repository.
func (r *Registry) Delete(ctx context.Context, ownerID, entryID string) error {
	o, err := r.lockOwner(ownerID)
	if err != nil {
		return err
	}
	defer o.mu.Unlock()

	if err := r.ensureAttachedLocked(ctx, ownerID, o); err != nil {
		return err
	}

	i := indexOf(o.tasks, entryID)
	if i < 0 {
		return &NotFoundError{OwnerID: ownerID, EntryID: entryID}
	}
	old := o.tasks[i]
	old.stop()

	ok, err := r.repo.Remove(ctx, ownerID, entryID)
	if err != nil {
		o.tasks[i] = r.spawn(old.entry)
		return fmt.Errorf("failed to delete reminder %s: %w", entryID, err)
	}
	o.tasks = slices.Delete(o.tasks, i, i+1)
	if !ok {
		return &NotFoundError{OwnerID: ownerID, EntryID: entryID}
	}

	r.log.Info("Deleted reminder", "owner_id", ownerID, "entry_id", entryID)
	return nil
}

// List returns the owner's entries in display order, attaching the owner if needed.
func (r *Registry) List(ctx context.Context, ownerID string) ([]repository.Entry, error) {
	o, err := r.lockOwner(ownerID)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()

	if err := r.ensureAttachedLocked(ctx, ownerID, o); err != nil {
		return nil, err
	}

	entries := make([]repository.Entry, len(o.tasks))
	for i, t := range o.tasks {
		entries[i] = t.entry
	}
	return entries, nil
}

// Resolve maps a 1-based display position to the entry shown there.
func (r *Registry) Resolve(ctx context.Context, ownerID string, position int) (repository.Entry, error) {
	entries, err := r.List(ctx, ownerID)
	if err != nil {
		return repository.Entry{}, err
	}
	if position < 1 || position > len(entries) {
		return repository.Entry{}, &NotFoundError{OwnerID: ownerID, Position: position}
	}
	return entries[position-1], nil
}

// Tasks returns a snapshot of the owner's running tasks in display order.
func (r *Registry) Tasks(ownerID string) []TaskInfo {
	r.mu.Lock()
	o, ok := r.owners[ownerID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	infos := make([]TaskInfo, len(o.tasks))
	for i, t := range o.tasks {
		infos[i] = t.info()
	}
	return infos
}

// TaskCount reports how many tasks are running for the owner.
func (r *Registry) TaskCount(ownerID string) int {
	return len(r.Tasks(ownerID))
}

func (r *Registry) trackedOwners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	owners := make([]string, 0, len(r.owners))
	for id := range r.owners {
		owners = append(owners, id)
	}
	return owners
}

// Shutdown cancels every task and waits for them to exit or for ctx to end.
// Every later operation returns ErrClosed.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	owners := make([]*ownerState, 0, len(r.owners))
	for _, o := range r.owners {
		owners = append(owners, o)
	}
	r.owners = make(map[string]*ownerState)
	r.mu.Unlock()

	var tasks []*task
	for _, o := range owners {
		o.mu.Lock()
		for _, t := range o.tasks {
			t.cancel()
		}
		tasks = append(tasks, o.tasks...)
		o.tasks = nil
		o.attached = false
		o.removed = true
		o.mu.Unlock()
	}

	for _, t := range tasks {
		select {
		case <-t.done:
		case <-ctx.Done():
			return fmt.Errorf("failed to await reminder tasks: %w", ctx.Err())
		}
	}
	r.log.Info("Reminder registry shut down", "tasks", len(tasks))
	return nil
}
