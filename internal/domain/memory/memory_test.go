package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/clutch/internal/domain/memory"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time         { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newStore(c *clock, opts ...memory.Option) *memory.Store {
	base := []memory.Option{memory.WithLogger(logger.Nop()), memory.WithClock(c.Now)}
	return memory.New(append(base, opts...)...)
}

func clutchSituation(player string, health int) model.Situation {
	return model.Situation{
		Type: "clutch", PlayerID: player, Round: 10, Side: model.SideCT,
		Health: health, Money: 3000, ScoreCT: 6, ScoreT: 5,
	}
}

func record(s *memory.Store, sit model.Situation, response string) model.MemoryRecord {
	return s.Record(memory.Fingerprint(sit), sit, "p:x", response)
}

func TestFingerprint(t *testing.T) {
	Convey("Given two situations in the same buckets", t, func() {
		a := clutchSituation("p1", 80)
		b := clutchSituation("p1", 76)
		b.Money = 3900

		Convey("Then they share a fingerprint", func() {
			So(memory.Fingerprint(a), ShouldEqual, memory.Fingerprint(b))
			So(memory.Fingerprint(a), ShouldHaveLength, 64)
		})

		Convey("Then a different bucket changes it", func() {
			b.Health = 74
			So(memory.Fingerprint(a), ShouldNotEqual, memory.Fingerprint(b))
		})
	})

	Convey("Given situation types", t, func() {
		So(memory.SituationKey("triple_kill"), ShouldEqual, "triple_kill")
		So(memory.SituationKey("round_start_eco"), ShouldEqual, "round_start")
		So(memory.SituationKey("economy_shift"), ShouldEqual, "economy")
		So(memory.SituationKey("side_switch"), ShouldEqual, "general")
	})
}

func TestSimilarity(t *testing.T) {
	Convey("Given the default weights", t, func() {
		w := memory.DefaultWeights()
		a := clutchSituation("p1", 100)

		So(memory.Similarity(a, a, w), ShouldAlmostEqual, 1.0)

		b := clutchSituation("p1", 50)
		So(memory.Similarity(a, b, w), ShouldAlmostEqual, 0.9)

		far := model.Situation{Type: "clutch", Side: model.SideT, Health: 20, Round: 10, ScoreCT: 1}
		So(memory.Similarity(a, far, w), ShouldAlmostEqual, 0.22)

		So(memory.Similarity(a, b, memory.Weights{}), ShouldEqual, 0)
	})
}

func TestLookup(t *testing.T) {
	Convey("Given a store with records of two players", t, func() {
		c := &clock{now: t0}
		s := newStore(c)

		a := clutchSituation("p1", 100)
		exact := record(s, a, "exact")
		c.Advance(time.Second)
		same := record(s, clutchSituation("p1", 50), "same player")
		c.Advance(time.Second)
		other := record(s, clutchSituation("p2", 60), "other player")
		c.Advance(time.Second)
		far := model.Situation{Type: "clutch", PlayerID: "p1", Side: model.SideT, Health: 20, Round: 10, ScoreCT: 1}
		record(s, far, "too far")
		c.Advance(time.Second)
		record(s, model.Situation{Type: "ace", PlayerID: "p1", Side: model.SideCT, Health: 100, Money: 3000, Round: 10, ScoreCT: 6, ScoreT: 5}, "other key")

		Convey("When looking up the first situation", func() {
			hits := s.Lookup(memory.Fingerprint(a), memory.SituationKey(a.Type), a)

			Convey("Then the exact match comes first with full confidence", func() {
				So(hits, ShouldHaveLength, 3)
				So(hits[0].Record.ID, ShouldEqual, exact.ID)
				So(hits[0].Match, ShouldEqual, memory.MatchExact)
				So(hits[0].Confidence, ShouldEqual, 1.0)
			})

			Convey("Then same-player matches precede penalized other-player ones", func() {
				So(hits[1].Record.ID, ShouldEqual, same.ID)
				So(hits[1].Match, ShouldEqual, memory.MatchSituation)
				So(hits[1].Confidence, ShouldAlmostEqual, 0.9)
				So(hits[2].Record.ID, ShouldEqual, other.ID)
				So(hits[2].Match, ShouldEqual, memory.MatchOtherPlayer)
				So(hits[2].Confidence, ShouldAlmostEqual, 0.92*0.7)
			})

			Convey("Then the lookup counts as a hit", func() {
				st := s.Stats()
				So(st.Lookups, ShouldEqual, 1)
				So(st.Hits, ShouldEqual, 1)
				So(st.HitRate, ShouldEqual, 1.0)
			})
		})

		Convey("When results exceed the limit", func() {
			limited := newStore(c, memory.WithConfig(memory.Config{MaxResults: 2}))
			for i := 0; i < 4; i++ {
				record(limited, a, "dup")
			}
			hits := limited.Lookup(memory.Fingerprint(a), "clutch", a)
			So(hits, ShouldHaveLength, 2)
		})

		Convey("When nothing is close", func() {
			miss := model.Situation{Type: "bomb_planted", PlayerID: "p1"}
			So(s.Lookup(memory.Fingerprint(miss), memory.SituationKey(miss.Type), miss), ShouldBeEmpty)
			So(s.Stats().Hits, ShouldEqual, 0)
		})
	})
}

func TestCapAndRetention(t *testing.T) {
	Convey("Given a store capped at three records", t, func() {
		c := &clock{now: t0}
		s := newStore(c, memory.WithConfig(memory.Config{Cap: 3, Retention: time.Hour}))

		var ids []string
		for i := 0; i < 5; i++ {
			ids = append(ids, record(s, clutchSituation("p1", i*10), "r").ID)
			c.Advance(time.Minute)
		}

		Convey("Then the oldest records are evicted first", func() {
			So(s.Len(), ShouldEqual, 3)
			_, ok := s.Get(ids[0])
			So(ok, ShouldBeFalse)
			_, ok = s.Get(ids[1])
			So(ok, ShouldBeFalse)
			_, ok = s.Get(ids[4])
			So(ok, ShouldBeTrue)
			So(s.Stats().Evicted, ShouldEqual, 2)
		})

		Convey("When the retention window passes for some records", func() {
			removed := s.Sweep(t0.Add(time.Hour + 3*time.Minute + 30*time.Second))

			Convey("Then only expired records are purged", func() {
				So(removed, ShouldEqual, 2)
				So(s.Len(), ShouldEqual, 1)
				_, ok := s.Get(ids[4])
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestMarkOutcome(t *testing.T) {
	Convey("Given a stored record", t, func() {
		c := &clock{now: t0}
		s := newStore(c)
		r := record(s, clutchSituation("p1", 100), "hold the angle")

		Convey("When marking it positive twice", func() {
			So(s.MarkOutcome(r.ID, model.EffectivenessPositive), ShouldBeNil)
			So(s.MarkOutcome(r.ID, model.EffectivenessPositive), ShouldBeNil)

			Convey("Then the outcome is stored once", func() {
				got, _ := s.Get(r.ID)
				So(got.Effectiveness, ShouldEqual, model.EffectivenessPositive)
				So(got.OutcomeAt.Equal(t0), ShouldBeTrue)
				So(s.Stats().Accurate, ShouldEqual, 1)
			})

			Convey("Then a conflicting outcome is rejected", func() {
				err := s.MarkOutcome(r.ID, model.EffectivenessNegative)
				So(errors.Is(err, memory.ErrOutcomeAlreadySet), ShouldBeTrue)
				So(s.Stats().Inaccurate, ShouldEqual, 0)
			})
		})

		Convey("Then unknown ids and unset values are errors", func() {
			So(errors.Is(s.MarkOutcome("missing", model.EffectivenessNeutral), memory.ErrRecordNotFound), ShouldBeTrue)
			So(errors.Is(s.MarkOutcome(r.ID, model.EffectivenessUnset), memory.ErrInvalidEffectiveness), ShouldBeTrue)
		})
	})
}

func TestPersistence(t *testing.T) {
	for _, name := range []string{"memory.json", "memory.json.zst"} {
		Convey("Given a store checkpointing to "+name, t, func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "state", name)
			c := &clock{now: t0}
			state := memory.SessionState{
				Identity: &model.PlayerIdentity{Name: "coachee", ExternalID: "765", Confidence: 72},
				Cooldowns: []model.CooldownEntry{
					{EventType: model.KindBombPlanted, LastFiredAt: t0, Window: 10 * time.Second},
				},
			}
			cfg := memory.Config{Path: path}
			s := newStore(c, memory.WithConfig(cfg), memory.WithSessionState(func() memory.SessionState { return state }))

			first := record(s, clutchSituation("p1", 100), "first")
			c.Advance(time.Minute)
			second := record(s, clutchSituation("p1", 40), "second")
			So(s.MarkOutcome(first.ID, model.EffectivenessNegative), ShouldBeNil)

			So(s.Checkpoint(), ShouldBeNil)

			Convey("When a fresh store loads the checkpoint", func() {
				restored := newStore(c, memory.WithConfig(cfg))
				got, err := restored.Load()
				So(err, ShouldBeNil)

				Convey("Then records, outcomes and session state survive", func() {
					So(restored.Len(), ShouldEqual, 2)
					r, ok := restored.Get(first.ID)
					So(ok, ShouldBeTrue)
					So(r.Response, ShouldEqual, "first")
					So(r.Effectiveness, ShouldEqual, model.EffectivenessNegative)
					So(r.CreatedAt.Equal(first.CreatedAt), ShouldBeTrue)
					_, ok = restored.Get(second.ID)
					So(ok, ShouldBeTrue)
					So(restored.Stats().Inaccurate, ShouldEqual, 1)

					So(got.Identity, ShouldNotBeNil)
					So(got.Identity.Name, ShouldEqual, "coachee")
					So(got.Cooldowns, ShouldHaveLength, 1)
					So(got.Cooldowns[0].EventType, ShouldEqual, model.KindBombPlanted)
					So(got.Cooldowns[0].Window, ShouldEqual, 10*time.Second)
				})
			})
		})
	}

	Convey("Given a zstd checkpoint path", t, func() {
		path := filepath.Join(t.TempDir(), "m.zst")
		s := newStore(&clock{now: t0}, memory.WithConfig(memory.Config{Path: path}))
		record(s, clutchSituation("p1", 100), "x")
		So(s.Checkpoint(), ShouldBeNil)

		Convey("Then the file carries the zstd magic", func() {
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(data[:4], ShouldResemble, []byte{0x28, 0xb5, 0x2f, 0xfd})
		})
	})

	Convey("Given no checkpoint file", t, func() {
		path := filepath.Join(t.TempDir(), "absent.json")
		s := newStore(&clock{now: t0}, memory.WithConfig(memory.Config{Path: path}))

		Convey("Then loading is a cold start", func() {
			st, err := s.Load()
			So(err, ShouldBeNil)
			So(st.Identity, ShouldBeNil)
			So(s.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a corrupt checkpoint file", t, func() {
		path := filepath.Join(t.TempDir(), "bad.json")
		So(os.WriteFile(path, []byte("{not json"), 0o600), ShouldBeNil)
		s := newStore(&clock{now: t0}, memory.WithConfig(memory.Config{Path: path}))

		Convey("Then loading reports a persistence error", func() {
			_, err := s.Load()
			So(errors.Is(err, memory.ErrPersistence), ShouldBeTrue)
		})
	})
}

func TestLifecycle(t *testing.T) {
	Convey("Given a started store with a checkpoint path", t, func() {
		path := filepath.Join(t.TempDir(), "memory.json")
		s := newStore(&clock{now: t0}, memory.WithConfig(memory.Config{Path: path}))
		So(s.Start(context.Background()), ShouldBeNil)
		record(s, clutchSituation("p1", 100), "x")

		Convey("When shutting down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			So(s.Shutdown(ctx), ShouldBeNil)

			Convey("Then a final checkpoint is written", func() {
				_, err := os.Stat(path)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a store that was never started", t, func() {
		s := newStore(&clock{now: t0})
		So(s.Shutdown(context.Background()), ShouldBeNil)
	})
}
