package queue

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/clutch/internal/domain/model"
)

func req(id string, kind model.EventKind, p model.Priority) model.AnalysisRequest {
	return model.AnalysisRequest{ID: id, EventType: kind, Priority: p}
}

func TestPriorityQueue_Order(t *testing.T) {
	q := NewPriorityQueue()

	for _, r := range []model.AnalysisRequest{
		req("low", model.KindRoundEnd, model.PriorityLow),
		req("high-1", model.KindTripleKill, model.PriorityHigh),
		req("medium", model.KindRoundStart, model.PriorityMedium),
		req("high-2", model.KindClutch, model.PriorityHigh),
		req("critical", model.KindBombDefusing, model.PriorityCritical),
	} {
		if _, err := q.Push(r); err != nil {
			t.Fatalf("push %s: %v", r.ID, err)
		}
	}

	if head, ok := q.Peek(); !ok || head.ID != "critical" {
		t.Fatalf("expected critical at head, got %+v", head)
	}

	want := []string{"critical", "high-1", "high-2", "medium", "low"}
	for _, id := range want {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("expected %s, queue empty", id)
		}
		if got.ID != id {
			t.Errorf("expected %s, got %s", id, got.ID)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}
}

func TestPriorityQueue_Duplicate(t *testing.T) {
	q := NewPriorityQueue()

	if _, err := q.Push(req("a", model.KindClutch, model.PriorityHigh)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := q.Push(req("b", model.KindClutch, model.PriorityHigh))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	// Once dispatched the type may be queued again.
	q.Pop()
	if q.Contains(model.KindClutch) {
		t.Error("expected type to be released after pop")
	}
	if _, err := q.Push(req("c", model.KindClutch, model.PriorityHigh)); err != nil {
		t.Errorf("expected re-push to succeed, got %v", err)
	}
}

func TestPriorityQueue_Overflow(t *testing.T) {
	q := NewPriorityQueue(WithMaxDepth(3))

	mustPush := func(r model.AnalysisRequest) *model.AnalysisRequest {
		t.Helper()
		ev, err := q.Push(r)
		if err != nil {
			t.Fatalf("push %s: %v", r.ID, err)
		}
		return ev
	}

	mustPush(req("low-old", model.KindRoundEnd, model.PriorityLow))
	mustPush(req("medium", model.KindRoundStart, model.PriorityMedium))
	mustPush(req("low-new", model.KindEconomyShift, model.PriorityLow))

	ev := mustPush(req("high", model.KindAce, model.PriorityHigh))
	if ev == nil || ev.ID != "low-old" {
		t.Fatalf("expected low-old to be evicted, got %+v", ev)
	}
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
	if q.Contains(model.KindRoundEnd) {
		t.Error("evicted type still marked as queued")
	}

	// The oldest low entry goes, not the one just pushed.
	ev = mustPush(req("low-newest", model.KindLowEconomy, model.PriorityLow))
	if ev == nil || ev.ID != "low-new" {
		t.Errorf("expected low-new to be evicted, got %+v", ev)
	}
}

func TestPriorityQueue_Close(t *testing.T) {
	q := NewPriorityQueue()
	q.Push(req("a", model.KindRoundEnd, model.PriorityLow))
	q.Push(req("b", model.KindClutch, model.PriorityHigh))

	discarded := q.Close()
	if len(discarded) != 2 || discarded[0].ID != "b" {
		t.Fatalf("expected two discarded requests in dispatch order, got %+v", discarded)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after close, got %d", q.Len())
	}
	if _, err := q.Push(req("c", model.KindAce, model.PriorityHigh)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if again := q.Close(); again != nil {
		t.Errorf("expected second close to return nothing, got %+v", again)
	}
}

func TestPriorityQueue_ConcurrentAccess(t *testing.T) {
	q := NewPriorityQueue(WithMaxDepth(len(model.AllKinds())))

	var wg sync.WaitGroup
	for _, kind := range model.AllKinds() {
		wg.Add(1)
		go func(k model.EventKind) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				q.Push(req(k.String(), k, model.Priority(i%4)))
			}
		}(kind)
	}
	wg.Wait()

	if q.Len() != len(model.AllKinds()) {
		t.Fatalf("expected one request per kind, got %d", q.Len())
	}
	prev := model.PriorityCritical
	for {
		r, ok := q.Pop()
		if !ok {
			break
		}
		if r.Priority > prev {
			t.Errorf("priority order violated: %s after %s", r.Priority, prev)
		}
		prev = r.Priority
	}
}
