// Package httpserver runs the API behind an http.Server with graceful
// shutdown and provides the /healthz handler.
//
//	srv := httpserver.New(cfg.HTTP, router, log)
//	if err := srv.Run(ctx); err != nil { ... }
//
// Run returns when ctx is cancelled (typically by signal.NotifyContext in
// main) after in-flight requests finish or ShutdownTimeout elapses.
package httpserver
