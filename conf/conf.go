package conf

import (
	"os"
	"strconv"
)

// GetHttpAddrFromEnv returns the listen address of the HTTP server.
func GetHttpAddrFromEnv() string {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// GetRecomputeWorkersFromEnv returns the size of the recompute worker
// pool. Bulk rescores fan out across these workers.
func GetRecomputeWorkersFromEnv() int {
	raw := os.Getenv("RECOMPUTE_WORKERS")
	if raw == "" {
		return 8
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 8
	}
	return n
}
