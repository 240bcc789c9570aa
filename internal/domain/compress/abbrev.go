package compress

import (
	"strconv"
	"strings"

	"github.com/okian/clutch/internal/domain/model"
)

var abbreviations = map[string]string{
	"weapon_ak47":          "ak",
	"weapon_m4a1":          "m4",
	"weapon_m4a1_silencer": "m4s",
	"weapon_awp":           "awp",
	"weapon_deagle":        "de",
	"weapon_glock":         "gl",
	"weapon_usp_silencer":  "usp",
	"weapon_knife":         "kn",
	"weapon_c4":            "c4",
	"weapon_flashbang":     "fl",
	"weapon_hegrenade":     "he",
	"weapon_smokegrenade":  "sm",
	"weapon_decoy":         "dc",
	"weapon_incgrenade":    "inc",
	"weapon_molotov":       "mol",

	"de_mirage":   "mir",
	"de_dust2":    "d2",
	"de_inferno":  "inf",
	"de_nuke":     "nk",
	"de_cache":    "cch",
	"de_overpass": "ovp",
	"de_train":    "trn",
	"de_vertigo":  "vtg",
	"de_ancient":  "anc",
	"de_anubis":   "anb",
}

var phaseCodes = map[model.Phase]string{
	model.PhaseFreezetime: "ft",
	model.PhaseLive:       "lv",
	model.PhaseOver:       "ov",
	model.PhaseGameOver:   "go",
	model.PhaseWarmup:     "wu",
	model.PhasePaused:     "ps",
}

var bombCodes = map[model.BombState]string{
	model.BombNone:     "-",
	model.BombCarried:  "cr",
	model.BombDropped:  "dr",
	model.BombPlanting: "pg",
	model.BombPlanted:  "pl",
	model.BombDefusing: "df",
	model.BombDefused:  "dd",
	model.BombExploded: "ex",
}

// Abbreviate returns the short form of a weapon or map identifier. Unknown
// weapons lose their "weapon_" prefix; other values pass through.
func Abbreviate(s string) string {
	if a, ok := abbreviations[s]; ok {
		return a
	}
	return strings.TrimPrefix(s, "weapon_")
}

func phaseCode(p model.Phase) string {
	if c, ok := phaseCodes[p]; ok {
		return c
	}
	return "u"
}

func sideCode(s model.Side) string {
	switch s {
	case model.SideCT:
		return "CT"
	case model.SideT:
		return "T"
	default:
		return "U"
	}
}

func bombCode(b model.BombState) string {
	if c, ok := bombCodes[b]; ok {
		return c
	}
	return "?"
}

// money renders amounts of a thousand or more as "Nk".
func money(m int) string {
	if m >= 1000 {
		return strconv.Itoa(m/1000) + "k"
	}
	return strconv.Itoa(m)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
