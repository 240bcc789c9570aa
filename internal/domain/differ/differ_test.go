package differ

import (
	"testing"
	"time"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

func baseSnapshot() model.Snapshot {
	return model.Snapshot{
		ObservedAt: t0,
		Present:    model.AllFields,
		Phase:      model.PhaseLive,
		Round:      5,
		ClockTime:  80,
		Bomb:       model.BombCarried,
		PlayerID:   "p1",
		PlayerName: "coachee",
		Side:       model.SideT,
		Vitals:     model.Vitals{Health: 100, Armor: 100, Money: 3000, RoundKills: 0, EquipValue: 4000},
		Map:        "de_inferno",
		ScoreCT:    3,
		ScoreT:     2,
		Roster: []model.RosterEntry{
			{ID: "p1", Side: model.SideT, Health: 100},
			{ID: "p2", Side: model.SideT, Health: 100},
			{ID: "e1", Side: model.SideCT, Health: 100},
			{ID: "e2", Side: model.SideCT, Health: 100},
		},
	}
}

func step(s model.Snapshot, d time.Duration, mutate func(*model.Snapshot)) model.Snapshot {
	s.ObservedAt = s.ObservedAt.Add(d)
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func kinds(events []model.DetectedEvent) []model.EventKind {
	out := make([]model.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestDiffer() *Differ {
	return New(WithLogger(logger.Nop()))
}

func TestBaseline(t *testing.T) {
	Convey("Given a fresh differ", t, func() {
		d := newTestDiffer()

		Convey("When the first snapshot arrives", func() {
			events := d.Update(baseSnapshot())

			Convey("Then it only becomes the baseline", func() {
				So(events, ShouldBeEmpty)
				So(d.Stats().Baselines, ShouldEqual, 1)
			})
		})
	})
}

func TestSingleCrossings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Snapshot)
		want   model.EventKind
	}{
		{"health below 30", func(s *model.Snapshot) { s.Vitals.Health = 25 }, model.KindLowHealth},
		{"health below 15", func(s *model.Snapshot) { s.Vitals.Health = 9 }, model.KindCriticalHealth},
		{"money crossing low", func(s *model.Snapshot) { s.Vitals.Money = 1400 }, model.KindLowEconomy},
		{"money swing", func(s *model.Snapshot) { s.Vitals.Money = 5400 }, model.KindEconomyShift},
		{"bomb planted", func(s *model.Snapshot) { s.Bomb = model.BombPlanted }, model.KindBombPlanted},
		{"bomb defusing", func(s *model.Snapshot) { s.Bomb = model.BombDefusing }, model.KindBombDefusing},
		{"round over", func(s *model.Snapshot) { s.Phase = model.PhaseOver; s.ScoreT = 3 }, model.KindRoundEnd},
		{"freeze time", func(s *model.Snapshot) { s.Phase = model.PhaseFreezetime }, model.KindRoundStart},
		{"side switch", func(s *model.Snapshot) { s.Side = model.SideCT }, model.KindSideSwitch},
	}

	Convey("Given snapshot pairs where exactly one tracked field crosses", t, func() {
		for _, tc := range cases {
			tc := tc
			Convey("When "+tc.name, func() {
				d := newTestDiffer()
				base := baseSnapshot()
				d.Update(base)
				events := d.Update(step(base, time.Second, tc.mutate))

				Convey("Then exactly one event of that kind is emitted", func() {
					So(kinds(events), ShouldResemble, []model.EventKind{tc.want})
					So(events[0].ObservedAt, ShouldEqual, t0.Add(time.Second))
					So(events[0].Subject, ShouldEqual, "p1")
				})
			})
		}

		Convey("When nothing crosses", func() {
			d := newTestDiffer()
			base := baseSnapshot()
			d.Update(base)
			events := d.Update(step(base, time.Second, func(s *model.Snapshot) {
				s.Vitals.Health = 60
				s.Vitals.Money = 2500
				s.ClockTime = 40
			}))

			Convey("Then no event is emitted", func() {
				So(events, ShouldBeEmpty)
			})
		})
	})
}

func TestRoundStartLatch(t *testing.T) {
	Convey("Given a live round", t, func() {
		d := newTestDiffer()
		live := baseSnapshot()
		d.Update(live)

		Convey("When the phase moves to freeze time and the same snapshot repeats", func() {
			freeze := step(live, time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseFreezetime })
			first := d.Update(freeze)
			second := d.Update(step(freeze, time.Second, nil))

			Convey("Then round start fires once", func() {
				So(kinds(first), ShouldResemble, []model.EventKind{model.KindRoundStart})
				So(second, ShouldBeEmpty)
			})

			Convey("And a noisy flip inside the same round does not refire", func() {
				d.Update(step(freeze, 2*time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseLive }))
				again := d.Update(step(freeze, 3*time.Second, nil))
				So(again, ShouldBeEmpty)
			})

			Convey("And the next round fires again after the round ends", func() {
				d.Update(step(freeze, 10*time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseLive }))
				d.Update(step(freeze, 90*time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseOver; s.ScoreT = 3 }))
				next := d.Update(step(freeze, 100*time.Second, func(s *model.Snapshot) {
					s.Round = 6
					s.ScoreT = 3
				}))
				So(kinds(next), ShouldContain, model.KindRoundStart)
			})
		})

		Convey("When the round end is missed but the round number advances", func() {
			d.Update(step(live, time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseFreezetime }))
			d.Update(step(live, 2*time.Second, nil))
			next := d.Update(step(live, 3*time.Second, func(s *model.Snapshot) {
				s.Phase = model.PhaseFreezetime
				s.Round = 6
			}))

			Convey("Then the latch opens for the new round", func() {
				So(kinds(next), ShouldResemble, []model.EventKind{model.KindRoundStart})
			})
		})
	})
}

func TestRoundStartVariants(t *testing.T) {
	Convey("Given round start conditions", t, func() {
		run := func(mutate func(*model.Snapshot)) []model.DetectedEvent {
			d := newTestDiffer()
			base := baseSnapshot()
			mutate(&base)
			d.Update(base)
			return d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Phase = model.PhaseFreezetime }))
		}

		Convey("Then the first round is a pistol round", func() {
			ev := run(func(s *model.Snapshot) { s.Round = 0; s.ScoreCT, s.ScoreT = 0, 0; s.Vitals.Money = 800 })
			So(ev[0].Kind, ShouldEqual, model.KindRoundStartPistol)
			So(ev[0].Priority, ShouldEqual, model.PriorityHigh)
		})

		Convey("Then low money is an eco round", func() {
			ev := run(func(s *model.Snapshot) { s.Vitals.Money = 1000 })
			So(ev[0].Kind, ShouldEqual, model.KindRoundStartEco)
			So(ev[0].Priority, ShouldEqual, model.PriorityMedium)
		})

		Convey("Then a match point with full money is decisive", func() {
			ev := run(func(s *model.Snapshot) { s.Round = 28; s.ScoreCT, s.ScoreT = 15, 13; s.Vitals.Money = 6000 })
			So(ev[0].Kind, ShouldEqual, model.KindRoundStartDecisive)
		})

		Convey("Then missing money degrades to a plain round start", func() {
			ev := run(func(s *model.Snapshot) { s.Present = model.AllFields &^ model.FieldSet(model.FieldMoney) })
			So(ev[0].Kind, ShouldEqual, model.KindRoundStart)
		})
	})
}

func TestKillDetection(t *testing.T) {
	Convey("Given kills within a round", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)

		first := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.RoundKills = 1 }))
		second := d.Update(step(base, 3*time.Second, func(s *model.Snapshot) { s.Vitals.RoundKills = 2 }))
		third := d.Update(step(base, 20*time.Second, func(s *model.Snapshot) { s.Vitals.RoundKills = 3 }))

		Convey("Then a single kill emits nothing", func() {
			So(first, ShouldBeEmpty)
		})

		Convey("Then a quick second kill emits both the milestone and the streak", func() {
			So(kinds(second), ShouldResemble, []model.EventKind{model.KindDoubleKill, model.KindRapidKills})
			streak := second[1].Payload.(model.RapidKillPayload)
			So(streak.Streak, ShouldEqual, 2)
			So(streak.Gap, ShouldEqual, 2*time.Second)
		})

		Convey("Then a slow third kill only emits the milestone", func() {
			So(kinds(third), ShouldResemble, []model.EventKind{model.KindTripleKill})
			So(third[0].Priority, ShouldEqual, model.PriorityCritical)
		})
	})
}

func TestMalformedFields(t *testing.T) {
	Convey("Given a snapshot missing health", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		events := d.Update(step(base, time.Second, func(s *model.Snapshot) {
			s.Present = model.AllFields &^ model.FieldSet(model.FieldHealth)
			s.Vitals.Health = 5
			s.Vitals.Money = 1200
		}))

		Convey("Then only the health detector skips", func() {
			So(kinds(events), ShouldResemble, []model.EventKind{model.KindLowEconomy})
		})
	})

	Convey("Given a detector that panics", t, func() {
		d := newTestDiffer()
		d.detectors = append([]detector{{"broken", func(_, _ *model.Snapshot) []model.DetectedEvent {
			panic("nil map")
		}}}, d.detectors...)
		base := baseSnapshot()
		d.Update(base)
		events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Bomb = model.BombPlanted }))

		Convey("Then the other detectors still run", func() {
			So(kinds(events), ShouldResemble, []model.EventKind{model.KindBombPlanted})
			So(d.Stats().Panics, ShouldEqual, 1)
		})
	})
}

func TestOutOfOrder(t *testing.T) {
	Convey("Given a snapshot older than the previous one", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		events := d.Update(step(base, -time.Second, func(s *model.Snapshot) { s.Vitals.Health = 10 }))
		after := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.Health = 10 }))

		Convey("Then it is discarded without replacing the baseline", func() {
			So(events, ShouldBeEmpty)
			So(d.Stats().OutOfOrder, ShouldEqual, 1)
			So(kinds(after), ShouldResemble, []model.EventKind{model.KindCriticalHealth})
		})
	})
}

func TestBombAndClutchLatches(t *testing.T) {
	Convey("Given a planted bomb", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		planted := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Bomb = model.BombPlanted; s.BombCountdown = 40 }))
		defusing := d.Update(step(base, 2*time.Second, func(s *model.Snapshot) { s.Bomb = model.BombDefusing; s.Vitals.DefuseKit = true }))
		replanted := d.Update(step(base, 3*time.Second, func(s *model.Snapshot) { s.Bomb = model.BombPlanted }))

		Convey("Then the plant fires once while defuse attempts still report", func() {
			So(kinds(planted), ShouldResemble, []model.EventKind{model.KindBombPlanted})
			So(planted[0].Payload.(model.BombPayload).TimeRemaining, ShouldEqual, 40)
			So(kinds(defusing), ShouldResemble, []model.EventKind{model.KindBombDefusing})
			So(defusing[0].Payload.(model.BombPayload).DefuseSeconds, ShouldEqual, 5)
			So(replanted, ShouldBeEmpty)
		})
	})

	Convey("Given the last teammate dies", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		alone := step(base, time.Second, func(s *model.Snapshot) {
			s.Roster = []model.RosterEntry{
				{ID: "p1", Side: model.SideT, Health: 100},
				{ID: "p2", Side: model.SideT, Health: 0},
				{ID: "e1", Side: model.SideCT, Health: 100},
				{ID: "e2", Side: model.SideCT, Health: 60},
			}
		})
		first := d.Update(alone)
		second := d.Update(step(alone, time.Second, nil))

		Convey("Then a 1v2 clutch fires once", func() {
			So(kinds(first), ShouldResemble, []model.EventKind{model.KindClutch})
			So(first[0].Payload.(model.ClutchPayload).Situation(), ShouldEqual, "1v2")
			So(second, ShouldBeEmpty)
		})
	})
}

func TestHealthThresholds(t *testing.T) {
	Convey("Given a player already under the low threshold", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		base.Vitals.Health = 25
		d.Update(base)

		Convey("When health drops through the critical threshold", func() {
			events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.Health = 10 }))

			Convey("Then one critical warning is emitted", func() {
				So(kinds(events), ShouldResemble, []model.EventKind{model.KindCriticalHealth})
				p := events[0].Payload.(model.HealthPayload)
				So(p.Previous, ShouldEqual, 25)
				So(p.Health, ShouldEqual, 10)
			})
		})

		Convey("When health drops but stays above critical", func() {
			events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.Health = 18 }))

			Convey("Then nothing is emitted", func() {
				So(events, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a player already critical", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		base.Vitals.Health = 12
		d.Update(base)
		events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.Health = 4 }))

		Convey("Then a further drop is not reported again", func() {
			So(events, ShouldBeEmpty)
		})
	})
}

func TestWarningRearm(t *testing.T) {
	Convey("Given repeated health drops", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		first := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Vitals.Health = 20 }))
		d.Update(step(base, 2*time.Second, func(s *model.Snapshot) { s.Vitals.Health = 100 }))
		soon := d.Update(step(base, 3*time.Second, func(s *model.Snapshot) { s.Vitals.Health = 20 }))
		d.Update(step(base, 4*time.Second, func(s *model.Snapshot) { s.Vitals.Health = 100 }))
		later := d.Update(step(base, 15*time.Second, func(s *model.Snapshot) { s.Vitals.Health = 20 }))

		Convey("Then warnings respect the re-arm interval", func() {
			So(kinds(first), ShouldResemble, []model.EventKind{model.KindLowHealth})
			So(soon, ShouldBeEmpty)
			So(kinds(later), ShouldResemble, []model.EventKind{model.KindLowHealth})
		})
	})
}

func TestOvertimeAndMapChange(t *testing.T) {
	Convey("Given regulation ending level", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		base.ScoreCT, base.ScoreT = 15, 14
		d.Update(base)
		events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.ScoreT = 15 }))

		Convey("Then overtime starts", func() {
			So(kinds(events), ShouldResemble, []model.EventKind{model.KindOvertimeStart})
		})
	})

	Convey("Given a map change", t, func() {
		d := newTestDiffer()
		base := baseSnapshot()
		d.Update(base)
		events := d.Update(step(base, time.Second, func(s *model.Snapshot) { s.Map = "de_nuke"; s.Vitals.Health = 5 }))

		Convey("Then the new snapshot is a fresh baseline", func() {
			So(events, ShouldBeEmpty)
			So(d.Stats().Baselines, ShouldEqual, 2)
		})
	})
}
