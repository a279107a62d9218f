// Package logger builds the process *slog.Logger.
//
// New takes functional options for format, level, output and static
// attributes, and wraps the handler in a ContextHandler that runs registered
// ContextExtractor callbacks on every record. The HTTP layer registers
// extractors for the request id and the resolved tenant, so handlers only log
// with InfoContext/ErrorContext and the ids show up by themselves.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "storekit"),
//	    logger.WithContextExtractors(requestid.Extractor, tenant.Extractor),
//	)
//	log.InfoContext(ctx, "rules applied", logger.ProductID(id), logger.Duration(d))
//
// Attribute helpers (Error, TenantID, Component, ...) keep key names
// consistent. Helpers taking a possibly-nil value return an empty slog.Attr,
// which slog drops, so callers can pass errors without a nil check.
package logger
