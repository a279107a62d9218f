package pg_test

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storekit/pkg/pg"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert rule: %w", &pgconn.PgError{Code: "23505", ConstraintName: "pricing_rules_active_priority_key"})
	check := &pgconn.PgError{Code: "23514", ConstraintName: "products_price_check"}

	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsDuplicateKeyError(check))
	assert.False(t, pg.IsDuplicateKeyError(nil))

	assert.True(t, pg.IsConstraintViolation(dup, "pricing_rules_active_priority_key"))
	assert.False(t, pg.IsConstraintViolation(dup, "other"))

	assert.True(t, pg.IsCheckViolation(check))

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(nil))
}
