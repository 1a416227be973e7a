// Package redis provides Redis client utilities for the media store.
//
// This package wraps [github.com/redis/go-redis/v9] with connection retry at
// startup, a health check closure, and a graceful shutdown hook. The service
// uses Redis as the shared quota counter backend when several instances run
// against the same key database.
//
// # Usage
//
//	client, err := redis.Open(ctx, os.Getenv("REDIS_URL"),
//	    redis.WithPoolSize(20),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// # Error Handling
//
// The package defines sentinel errors for common failure modes:
//
//   - [ErrEmptyConnectionURL] - Empty connection URL provided
//   - [ErrFailedToParseURL] - Invalid connection URL format or scheme
//   - [ErrConnectionFailed] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Redis ping failed
//
// Errors are wrapped using [errors.Join] to preserve the original error context.
package redis
