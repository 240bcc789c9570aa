package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/clutch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventKind(t *testing.T) {
	convey.Convey("Given the closed event kind enum", t, func() {
		convey.Convey("When round-tripping every kind through its name", func() {
			convey.Convey("Then each parses back to itself", func() {
				for _, k := range model.AllKinds() {
					got, ok := model.ParseEventKind(k.String())
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(got, convey.ShouldEqual, k)
				}
			})
		})

		convey.Convey("When parsing an unknown name", func() {
			_, ok := model.ParseEventKind("headshot")
			_, unknownOK := model.ParseEventKind("unknown")

			convey.Convey("Then it is rejected", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(unknownOK, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When grouping kinds", func() {
			convey.So(model.KindRoundStartEco.IsRoundStart(), convey.ShouldBeTrue)
			convey.So(model.KindDoubleKill.IsRoundStart(), convey.ShouldBeFalse)
			convey.So(model.KindAce.IsMultiKill(), convey.ShouldBeTrue)
			convey.So(model.KindRapidKills.IsMultiKill(), convey.ShouldBeFalse)
		})

		convey.Convey("When encoding a cooldown entry", func() {
			entry := model.CooldownEntry{EventType: model.KindBombPlanted, Window: 10 * time.Second}
			b, err := json.Marshal(entry)

			convey.Convey("Then the kind is written by name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, `"event_type":"bomb_planted"`)
			})
		})
	})
}

func TestPriorityOrdering(t *testing.T) {
	if !(model.PriorityCritical > model.PriorityHigh &&
		model.PriorityHigh > model.PriorityMedium &&
		model.PriorityMedium > model.PriorityLow) {
		t.Fatal("priorities must be ordered critical > high > medium > low")
	}
}

func TestSnapshotHelpers(t *testing.T) {
	convey.Convey("Given a snapshot with a roster", t, func() {
		snap := model.Snapshot{
			PlayerID: "7656",
			Side:     model.SideCT,
			ScoreCT:  9,
			ScoreT:   12,
			Roster: []model.RosterEntry{
				{ID: "7656", Side: model.SideCT, Health: 12},
				{ID: "a", Side: model.SideCT, Health: 0},
				{ID: "b", Side: model.SideCT, Health: 20},
				{ID: "c", Side: model.SideT, Health: 100},
				{ID: "d", Side: model.SideT, Health: 10},
				{ID: "e", Side: model.SideT, Health: 0},
			},
		}

		convey.Convey("Then alive counts exclude the subject and the dead", func() {
			mates, enemies := snap.AliveCounts()
			convey.So(mates, convey.ShouldEqual, 1)
			convey.So(enemies, convey.ShouldEqual, 2)
		})

		convey.Convey("Then the team score is seen from the subject's side", func() {
			own, opp := snap.TeamScore()
			convey.So(own, convey.ShouldEqual, 9)
			convey.So(opp, convey.ShouldEqual, 12)
		})

		convey.Convey("Then low health teammates are counted without the subject", func() {
			convey.So(snap.LowHealthTeammates(30), convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a presence set", t, func() {
		fs := model.FieldSet(0).With(model.FieldHealth).With(model.FieldMoney)

		convey.So(fs.Has(model.FieldHealth), convey.ShouldBeTrue)
		convey.So(fs.Has(model.FieldHealth, model.FieldMoney), convey.ShouldBeTrue)
		convey.So(fs.Has(model.FieldHealth, model.FieldBomb), convey.ShouldBeFalse)
		convey.So(model.AllFields.Has(model.FieldScore, model.FieldPhase), convey.ShouldBeTrue)
	})
}

func TestEffectiveness(t *testing.T) {
	convey.Convey("Given effectiveness feedback values", t, func() {
		e, err := model.ParseEffectiveness("Positive")
		convey.So(err, convey.ShouldBeNil)
		convey.So(e, convey.ShouldEqual, model.EffectivenessPositive)

		_, err = model.ParseEffectiveness("great")
		convey.So(err, convey.ShouldNotBeNil)

		var decoded model.Effectiveness
		convey.So(json.Unmarshal([]byte(`"unset"`), &decoded), convey.ShouldBeNil)
		convey.So(decoded, convey.ShouldEqual, model.EffectivenessUnset)
	})
}

func TestPlayerIdentityMatches(t *testing.T) {
	id := model.PlayerIdentity{Name: "s1mple", ExternalID: "7656"}
	if !id.Matches("7656", "someone-else") {
		t.Error("external id should win over name")
	}
	if id.Matches("1234", "s1mple") {
		t.Error("different external ids must not match")
	}
	if !id.Matches("", "s1mple") {
		t.Error("name should be used when the snapshot has no id")
	}
}
