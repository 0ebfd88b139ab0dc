package core

import (
	"fmt"
	"net/http"
	"time"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/topk"
)

const (
	defaultBlockCost  = 1
	bucketDurationSec = 3600 // 1 hour buckets
	blockKeyPrefix    = "ipblock|"
)

// sketchLevels are the parameter presets of the ip sketch.
//   - "low":    ~10 KB memory. For low-traffic sites (< 50 RPS).
//   - "medium": ~120 KB memory. Balanced profile (50-500 RPS).
//   - "high":   ~640 KB memory. For high-traffic sites (> 500 RPS).
var sketchLevels = map[string]topk.SketchParams{
	"low":    {K: 2, WindowSize: 5, Width: 256, Depth: 2, TickSize: 100},
	"medium": {K: 3, WindowSize: 10, Width: 1024, Depth: 3, TickSize: 100},
	"high":   {K: 5, WindowSize: 20, Width: 4096, Depth: 4, TickSize: 200},
}

func newIpSketch(cfg config.BlockIp) *topk.TopKSketch {
	params, ok := sketchLevels[cfg.Level]
	if !ok {
		params = sketchLevels["medium"]
	}
	params.MaxSharePercent = cfg.MaxSharePercent
	params.ActivationRPS = cfg.ActivationRPS
	return topk.New(params)
}

// getTimeBucket returns the bucket number for a given time (periods since Unix epoch)
func getTimeBucket(t time.Time) int64 {
	return t.Unix() / bucketDurationSec
}

// formatBlockKey creates a consistent cache key for blocked IPs
func formatBlockKey(ip string, bucket int64) string {
	return fmt.Sprintf("%s%s|%d", blockKeyPrefix, ip, bucket)
}

// BlockIp is a circuit breaker against single clients flooding the auth
// endpoints, not a quota system. Every request feeds the sketch; heavy
// hitters are blocked in the cache for BlockIp.Duration.
func (a *App) BlockIp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.sketch == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := a.GetClientIP(r)
		if a.IsBlocked(ip) {
			writeJsonError(w, errorIpBlocked)
			return
		}

		for _, heavy := range a.sketch.ProcessTick(ip) {
			if err := a.Block(heavy); err != nil {
				a.Logger().Error("failed to block IP", "ip", heavy, "error", err)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// IsBlocked checks the block of ip in the current bucket.
func (a *App) IsBlocked(ip string) bool {
	_, found := a.Cache().Get(formatBlockKey(ip, getTimeBucket(a.now())))
	return found
}

// Block adds ip to the current bucket and, when the block outlives it,
// to the next one.
func (a *App) Block(ip string) error {
	now := a.now()
	duration := a.Config().BlockIp.Duration.Duration
	currentBucket := getTimeBucket(now)
	nextBucket := currentBucket + 1

	if !a.Cache().SetWithTTL(formatBlockKey(ip, currentBucket), true, defaultBlockCost, duration) {
		return fmt.Errorf("failed to block IP %s in current bucket %d", ip, currentBucket)
	}

	untilNextBucket := time.Duration(nextBucket*bucketDurationSec-now.Unix()) * time.Second
	if ttlNext := duration - untilNextBucket; ttlNext > 0 {
		if !a.Cache().SetWithTTL(formatBlockKey(ip, nextBucket), true, defaultBlockCost, ttlNext) {
			return fmt.Errorf("failed to block IP %s in next bucket %d", ip, nextBucket)
		}
	}

	a.Logger().Warn("IP blocked", "ip", ip, "duration", duration)
	a.notifyIpBlocked(ip, duration)
	return nil
}
