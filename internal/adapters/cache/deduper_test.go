package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/prizeboard/internal/adapters/cache"
	"github.com/okian/prizeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// unreachable returns a client pointed at a closed port.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisDeduper(t *testing.T) {
	Convey("Given a redis deduper", t, func() {
		d := cache.NewRedisDeduper(unreachable(), cache.WithKeyPrefix("test:"), cache.WithTTL(time.Minute))
		Reset(func() { _ = d.Close() })

		Convey("Then keys are namespaced", func() {
			So(d.Key("c1"), ShouldEqual, "test:c1")
		})

		Convey("When redis is unreachable", func() {
			ctx := context.Background()
			seen := d.SeenAndRecord(ctx, "c1")
			d.Unrecord(ctx, "c1")

			Convey("Then it fails open", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestConnect(t *testing.T) {
	Convey("Given a malformed redis url", t, func() {
		_, err := cache.Connect(context.Background(), "redis://:badport:x")

		Convey("Then parsing fails", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an unreachable address", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := cache.Connect(ctx, "127.0.0.1:1")

		Convey("Then the ping fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
