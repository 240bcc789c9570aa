package service

import (
	"fmt"
	"strings"

	"github.com/okian/clutch/internal/domain/compress"
	"github.com/okian/clutch/internal/domain/memory"
	"github.com/okian/clutch/internal/domain/model"
)

const systemPrompt = `You are a Counter-Strike 2 tactical coach talking to one player mid-match.
Reply with a single short, actionable instruction for the moment described.
Use plain text, no greetings, no lists, no markdown. Stay under %d characters.
Context keys are abbreviated: p player, g game, eco economy, w weapon, ut utility, t clock, en enemies alive,
tm teammates, ls loss streak, kd match stats, rk round kills, d change since last update.`

// maxPastAdvice bounds how many memory hits are quoted back to the model.
const maxPastAdvice = 3

func buildSystemPrompt(maxLength int) string {
	return fmt.Sprintf(systemPrompt, maxLength)
}

// buildUserPrompt renders the request, its compressed context and prior
// advice for similar situations.
func buildUserPrompt(req *model.AnalysisRequest, p compress.Payload, past []memory.SimilarRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "event:%s priority:%s\n", req.EventType, req.Priority)
	if req.ClassifierReason != "" {
		fmt.Fprintf(&b, "why:%s\n", req.ClassifierReason)
	}
	b.WriteString(p.String())

	n := 0
	for _, hit := range past {
		if n == maxPastAdvice {
			break
		}
		r := hit.Record
		switch r.Effectiveness {
		case model.EffectivenessNegative:
			fmt.Fprintf(&b, "\navoid:%q", r.Response)
		case model.EffectivenessPositive:
			fmt.Fprintf(&b, "\nworked:%q", r.Response)
		default:
			fmt.Fprintf(&b, "\nsaid_before:%q", r.Response)
		}
		n++
	}
	return b.String()
}

// reusable picks a stored response that can be repeated verbatim: an exact
// situation match whose advice was not reported as wrong.
func reusable(hits []memory.SimilarRecord) (model.MemoryRecord, bool) {
	for _, hit := range hits {
		if hit.Match != memory.MatchExact {
			continue
		}
		if hit.Record.Effectiveness == model.EffectivenessNegative || hit.Record.Response == "" {
			continue
		}
		return hit.Record, true
	}
	return model.MemoryRecord{}, false
}
