//go:build property

package cache

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRenderCacheProperties validates the size bound and FIFO order.
func TestRenderCacheProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("size never exceeds capacity", prop.ForAll(
		func(capacity, inserts int) bool {
			c := New(capacity)
			for i := 0; i < inserts; i++ {
				c.Set(fmt.Sprintf("key-%d", i), "v")
				if c.Len() > capacity {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
		gen.IntRange(0, 200),
	))

	properties.Property("N+1 distinct inserts evict exactly the first key", prop.ForAll(
		func(capacity int) bool {
			c := New(capacity)
			for i := 0; i <= capacity; i++ {
				c.Set(fmt.Sprintf("key-%d", i), "v")
			}
			_, firstPresent := c.Get("key-0")
			return c.Len() == capacity && !firstPresent
		},
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}
