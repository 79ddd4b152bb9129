package generator

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces successive values of type T, such as entry identifiers.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator produces random UUIDv4 strings. Entry ids come from here.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

// SequenceGenerator yields "<Prefix>1", "<Prefix>2", ... and is safe for concurrent use.
// Tests use it to get predictable entry ids.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

func (g *SequenceGenerator) Next() (string, error) {
	return fmt.Sprintf("%s%d", g.Prefix, g.n.Add(1)), nil
}

var (
	_ Generator[string] = (*UUIDV4Generator)(nil)
	_ Generator[string] = (*SequenceGenerator)(nil)
)
