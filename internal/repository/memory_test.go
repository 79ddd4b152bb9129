package repository_test

import (
	"testing"

	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/repository"
)

func TestMemoryEntryRepository(t *testing.T) {
	testEntryRepository(t, repository.NewMemoryEntryRepository(&generator.SequenceGenerator{Prefix: "mem-"}))
}
