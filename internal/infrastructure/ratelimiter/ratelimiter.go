package ratelimiter

import "net/http"

const defaultSourceHeaderKey = "X-Forwarded-For"

type Limiter interface {
	Allow(sourceKey string) bool
	Remaining(sourceKey string) int
	GetSourceKey(r *http.Request) string
	GetMaxBurst() int
}
