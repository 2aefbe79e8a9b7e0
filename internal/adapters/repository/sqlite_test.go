package repository_test

import (
	"context"
	"testing"

	"github.com/okian/prizeboard/internal/adapters/repository"
)

func TestSQLiteStore(t *testing.T) {
	storeContract(t, "sqlite", func() repository.Store {
		ctx := context.Background()
		s, err := repository.OpenSQL(ctx, repository.DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}
