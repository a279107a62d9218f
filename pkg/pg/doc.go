// Package pg opens the PostgreSQL pool used by storekit stores and applies
// schema migrations with goose.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
// Error helpers classify driver errors (IsNotFoundError, IsDuplicateKeyError,
// IsConstraintViolation) so repositories can map them to domain errors.
package pg
