// Package redis connects to Redis with go-redis/v9 for the Redis backed
// scope resolvers.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	core.RegisterScopeResolver("cohort", resolvers.NewRedisSetResolver(client, "cohort:{cohort_id}:members",
//	    resolvers.WithScanCount(cfg.ScanCount)), nil)
//
// Healthcheck returns a check that pings the server.
package redis
