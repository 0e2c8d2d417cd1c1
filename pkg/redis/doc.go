// Package redis connects the go-redis client used by the URL cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	cache := urlcache.Redis(client)
//
// Connect pings the server and retries with linear backoff, so a service
// started alongside Redis waits for it instead of failing on the first dial.
package redis
