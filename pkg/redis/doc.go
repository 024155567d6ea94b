// Package redis provides helpers for connecting to Redis with go-redis/v9.
//
// Connect retries PING at a fixed interval until the server answers, the
// attempts run out or the connect timeout elapses. Healthcheck returns a
// probe for the /health endpoint, and Key builds namespaced keys such as
// "signguard:claim:<id>".
//
// Redis is optional for the service: when REDIS_URL is empty, Config.Enabled
// reports false and callers fall back to in-memory stores.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	if cfg.Enabled() {
//	    client, err := redis.Connect(ctx, cfg)
//	    if err != nil {
//	        return err
//	    }
//	    defer client.Close()
//	}
package redis
