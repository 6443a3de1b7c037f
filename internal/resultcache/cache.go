// Package resultcache caches encoded lookup results keyed by normalized
// query.
package resultcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beetlebugorg/shapefile/pkg/geocode"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// DefaultTTL is used when a cache is built with a non-positive TTL.
const DefaultTTL = time.Hour

// Cache stores opaque values with a time to live. Implementations are safe
// for concurrent use. Get reports a miss on any backend error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// GeocodeKey keys a forward lookup. Each comma-separated part is normalized
// on its own, since commas steer address parsing; inputs that agree part by
// part share a key.
func GeocodeKey(address string, limit int) string {
	parts := strings.Split(address, ",")
	for i, p := range parts {
		parts[i] = geocode.Normalize(p)
	}
	return "geo:" + strconv.Itoa(limit) + ":" + strings.Join(parts, ",")
}

// ReverseKey keys a reverse lookup, rounding the point to six decimals.
func ReverseKey(p geom.Point, maxDistance float64) string {
	return fmt.Sprintf("rev:%.6f:%.6f:%g", p.X, p.Y, maxDistance)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte) error  { return nil }
func (Nop) Close() error                               { return nil }
