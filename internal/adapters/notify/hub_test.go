package notify_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/clutch/internal/adapters/notify"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with a collecting sink", t, func() {
		var got []notify.Notification
		sink := notify.SinkFunc(func(_ context.Context, n notify.Notification) error {
			got = append(got, n)
			return nil
		})
		now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
		h := notify.New(
			notify.WithLogger(logger.Nop()),
			notify.WithClock(func() time.Time { return now }),
			notify.WithConfig(notify.Config{RecentSize: 3, Fallback: true}),
			notify.WithSink(sink),
		)
		ctx := context.Background()

		Convey("When publishing a line", func() {
			ok := h.Publish(ctx, notify.Notification{Text: " Hold B. ", EventType: model.KindBombPlanted, Source: notify.SourceInference})

			Convey("Then sinks receive it trimmed and timestamped", func() {
				So(ok, ShouldBeTrue)
				So(got, ShouldHaveLength, 1)
				So(got[0].Text, ShouldEqual, "Hold B.")
				So(got[0].Timestamp, ShouldEqual, now)
			})

			Convey("Then the same text is suppressed inside the window", func() {
				So(h.Publish(ctx, notify.Notification{Text: "hold b.", EventType: model.KindClutch}), ShouldBeFalse)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When more lines arrive than the ring holds", func() {
			for i := 0; i < 5; i++ {
				h.Publish(ctx, notify.Notification{Text: fmt.Sprintf("line %d", i)})
			}

			Convey("Then the newest are kept, newest first", func() {
				recent := h.Recent(0)
				So(recent, ShouldHaveLength, 3)
				So(recent[0].Text, ShouldEqual, "line 4")
				So(recent[2].Text, ShouldEqual, "line 2")
				So(h.Recent(1)[0].Text, ShouldEqual, "line 4")
			})
		})

		Convey("When a sink fails", func() {
			h.Subscribe(notify.SinkFunc(func(context.Context, notify.Notification) error {
				return errors.New("overlay gone")
			}))

			Convey("Then delivery still counts and other sinks still receive it", func() {
				So(h.Publish(ctx, notify.Notification{Text: "rotate"}), ShouldBeTrue)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("Then empty text is never delivered", func() {
			So(h.Publish(ctx, notify.Notification{Text: "   "}), ShouldBeFalse)
			So(h.Recent(0), ShouldBeEmpty)
		})

		So(h.FallbackEnabled(), ShouldBeTrue)
	})
}

func TestFallback(t *testing.T) {
	Convey("Given event kinds", t, func() {
		So(notify.Fallback(model.KindBombPlanted), ShouldContainSubstring, "Bomb planted")
		So(notify.Fallback(model.KindRoundEnd), ShouldEqual, notify.Fallback(model.KindUnknown))
	})
}
