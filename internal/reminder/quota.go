package reminder

// MaxEntries is the number of weekly reminders one owner may keep.
const MaxEntries = 5

// QuotaGuard enforces the per-owner entry limit on add.
// A zero Limit means MaxEntries.
type QuotaGuard struct {
	Limit int
}

func (g QuotaGuard) limit() int {
	if g.Limit <= 0 {
		return MaxEntries
	}
	return g.Limit
}

// Check reports whether an owner holding count entries may add another.
func (g QuotaGuard) Check(ownerID string, count int) error {
	if limit := g.limit(); count >= limit {
		return &QuotaExceededError{OwnerID: ownerID, Limit: limit}
	}
	return nil
}
