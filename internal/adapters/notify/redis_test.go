package notify

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// Set FANTASY_TEST_REDIS_URL to a disposable Redis to run this.
func TestRedisBridge(t *testing.T) {
	url := os.Getenv("FANTASY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FANTASY_TEST_REDIS_URL not set")
	}

	Convey("Given a publisher and a bridge on the same channel", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := NewRedisClient(ctx, url)
		So(err, ShouldBeNil)
		defer client.Close()

		channel := WithChannel("fantasy:test:" + time.Now().Format("150405.000000"))
		h := newTestHub()
		sub := h.NewClient("grace")
		So(h.Register(sub), ShouldBeNil)

		bridge := NewBridge(client, h, channel, WithLogger(h.cfg.log))
		go func() { _ = bridge.Run(ctx) }()
		time.Sleep(100 * time.Millisecond)

		pub := NewRedisPublisher(client, channel, WithLogger(h.cfg.log), WithClock(fixedNow))

		Convey("When a team update is published", func() {
			So(pub.NotifyUser(ctx, "grace", "team-update", map[string]int{"budget": 1}), ShouldBeNil)

			Convey("Then the local client receives it", func() {
				select {
				case raw := <-sub.Send:
					m, err := decode(raw)
					So(err, ShouldBeNil)
					So(string(m.Data), ShouldEqual, `{"budget":1}`)
				case <-ctx.Done():
					So("timeout", ShouldBeEmpty)
				}
			})
		})
	})
}
