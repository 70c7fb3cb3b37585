package config

// This file defines a Redis client constructor for the application.  Redis
// holds the per-user session maps, the failed-login counters and the rate
// limiter / response cache state.  Connection parameters are loaded from
// environment variables.  Session verification must fail fast rather than
// hang, so dial and command timeouts are always set.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand (takes precedence if both are set)
//	REDIS_USERNAME / REDIS_PASSWORD – optional credentials
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//	REDIS_DIAL_TIMEOUT / REDIS_CMD_TIMEOUT – connect and command timeouts
//
// The returned client may be nil if a connection cannot be established;
// callers that only use Redis for rate limiting or caching should degrade
// gracefully, while the session store treats a nil client as fatal.
func NewRedisClient() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr := os.Getenv("REDIS_ADDR")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			dbNum = n
		}
	}
	var tlsConf *tls.Config
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	dialTimeout := envDur("REDIS_DIAL_TIMEOUT", 2*time.Second)
	cmdTimeout := envDur("REDIS_CMD_TIMEOUT", 2*time.Second)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     os.Getenv("REDIS_USERNAME"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           dbNum,
		TLSConfig:    tlsConf,
		DialTimeout:  dialTimeout,
		ReadTimeout:  cmdTimeout,
		WriteTimeout: cmdTimeout,
	})
	// Ping the server with a short timeout.  Return nil on failure.
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
