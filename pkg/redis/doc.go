// Package redis connects the go-redis client used for storekit's metered
// usage counters.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Healthcheck adapts the client for readiness probes.
package redis
