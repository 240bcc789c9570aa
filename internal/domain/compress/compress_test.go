package compress_test

import (
	"testing"
	"time"

	"github.com/okian/clutch/internal/domain/compress"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() model.Snapshot {
	return model.Snapshot{
		ObservedAt:    time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
		Present:       model.AllFields,
		Phase:         model.PhaseLive,
		Round:         11,
		ClockTime:     35,
		Bomb:          model.BombPlanted,
		BombCountdown: 31,
		BombSite:      "B",
		PlayerID:      "765",
		PlayerName:    "coachee",
		Side:          model.SideCT,
		Vitals: model.Vitals{
			Health: 100, Armor: 100, Money: 3000, RoundKills: 1,
			MatchKills: 12, Deaths: 7, EquipValue: 4700, DefuseKit: true,
		},
		ActiveWeapon: "weapon_m4a1_silencer",
		Grenades:     []string{"weapon_smokegrenade", "weapon_flashbang"},
		Map:          "de_mirage",
		ScoreCT:      6,
		ScoreT:       5,
		LossStreakT:  1,
		Roster: []model.RosterEntry{
			{ID: "765", Side: model.SideCT, Health: 100},
			{ID: "m1", Side: model.SideCT, Health: 0},
			{ID: "e1", Side: model.SideT, Health: 90},
			{ID: "e2", Side: model.SideT, Health: 40},
		},
		RawSize: 2400,
	}
}

func newCompressor(opts ...compress.Option) *compress.Compressor {
	return compress.New(append([]compress.Option{compress.WithLogger(logger.Nop())}, opts...)...)
}

func TestProfiles(t *testing.T) {
	Convey("Given a full snapshot", t, func() {
		c := newCompressor()
		snap := sample()

		Convey("When compressing a bomb event", func() {
			p := c.Compress(snap, model.KindBombPlanted)

			Convey("Then the bomb profile is rendered with abbreviations", func() {
				So(p.Profile, ShouldEqual, "bomb")
				bomb, _ := p.Get("bomb")
				So(bomb, ShouldEqual, "pl|B|31")
				m, _ := p.Get("map")
				So(m, ShouldEqual, "mir")
				kit, _ := p.Get("kit")
				So(kit, ShouldEqual, "1")
				ut, _ := p.Get("ut")
				So(ut, ShouldEqual, "sm,fl")
				player, _ := p.Get("p")
				So(player, ShouldEqual, "coachee|CT|100:100:3k")
			})
		})

		Convey("When compressing an eco round start", func() {
			snap.Vitals.Money = 1200
			snap.Vitals.EquipValue = 200
			p := c.Compress(snap, model.KindRoundStartEco)

			Convey("Then economy flags and the game line are present", func() {
				eco, _ := p.Get("eco")
				So(eco, ShouldEqual, "1k|eq200|ar1|rf0")
				g, _ := p.Get("g")
				So(g, ShouldEqual, "R12|6-5|lv")
				w, _ := p.Get("w")
				So(w, ShouldEqual, "m4s")
			})
		})

		Convey("When compressing a clutch", func() {
			p := c.Compress(snap, model.KindClutch)

			Convey("Then alive enemies are counted", func() {
				en, _ := p.Get("en")
				So(en, ShouldEqual, "2")
				So(p.Profile, ShouldEqual, "clutch")
			})
		})

		Convey("Then the output is far smaller than the raw document", func() {
			p := c.Compress(snap, model.KindRoundEnd)
			So(p.RawBytes, ShouldEqual, 2400)
			So(p.Bytes, ShouldEqual, len(p.String()))
			So(p.Ratio, ShouldBeGreaterThan, 0.9)
			So(c.Stats().Count, ShouldEqual, 1)
		})
	})

	Convey("Given unknown identifiers", t, func() {
		So(compress.Abbreviate("weapon_p90"), ShouldEqual, "p90")
		So(compress.Abbreviate("de_dust2"), ShouldEqual, "d2")
		So(compress.Abbreviate("cs_office"), ShouldEqual, "cs_office")
	})
}

func TestDelta(t *testing.T) {
	Convey("Given a compressor that has seen one snapshot", t, func() {
		c := newCompressor()
		first := sample()
		c.Compress(first, model.KindRoundEnd)

		Convey("When the next snapshot changes vitals", func() {
			next := sample()
			next.Vitals.Health = 74
			next.Vitals.Money = 3300
			p := c.Compress(next, model.KindSideSwitch)

			Convey("Then the general profile carries only the changes", func() {
				d, ok := p.Get("d")
				So(ok, ShouldBeTrue)
				So(d, ShouldEqual, "hp-26,$+300")
			})
		})

		Convey("When nothing changed", func() {
			p := c.Compress(first, model.KindRoundEnd)

			Convey("Then the delta is omitted", func() {
				_, ok := p.Get("d")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the compressor is reset", func() {
			c.Reset()
			next := sample()
			next.Vitals.Health = 74
			p := c.Compress(next, model.KindSideSwitch)

			Convey("Then there is no baseline to diff against", func() {
				_, ok := p.Get("d")
				So(ok, ShouldBeFalse)
				So(c.Stats().Count, ShouldEqual, 1)
			})
		})
	})
}

func TestRequiredFieldsSurvivePressure(t *testing.T) {
	Convey("Given the smallest possible budget", t, func() {
		c := newCompressor(compress.WithMaxTokens(1))

		for _, kind := range model.AllKinds() {
			for _, snap := range []model.Snapshot{sample(), {}} {
				p := c.Compress(snap, kind)
				for _, key := range compress.RequiredKeys(kind) {
					_, ok := p.Get(key)
					So(ok, ShouldBeTrue)
				}
				for _, f := range p.Fields {
					So(f.Required, ShouldBeTrue)
				}
			}
		}
	})

	Convey("Given a moderate budget", t, func() {
		full := newCompressor(compress.WithMaxTokens(0)).Compress(sample(), model.KindBombPlanted)
		tight := newCompressor(compress.WithMaxTokens(12)).Compress(sample(), model.KindBombPlanted)

		Convey("Then optional keys are dropped last first", func() {
			So(len(full.Dropped), ShouldEqual, 0)
			So(tight.Dropped, ShouldNotBeEmpty)
			So(tight.Dropped[0], ShouldEqual, "en")
			So(len(tight.Fields), ShouldBeLessThan, len(full.Fields))
		})
	})
}
