package services

import (
	"os"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

var DefaultRedisClient = sync.OnceValue(func() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			panic("REDIS_DB must be an integer: " + raw)
		}
		db = parsed
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
})
