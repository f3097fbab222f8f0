package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	"github.com/corbtastik/incident-visualizer/internal/storage/memory"
)

type hookCall struct {
	backend, op string
	failed      bool
}

type recordingHook struct{ calls []hookCall }

func (h *recordingHook) ObserveStorage(backend, op string, _ time.Duration, err error) {
	h.calls = append(h.calls, hookCall{backend, op, err != nil})
}

func TestObservedReportsEveryCall(t *testing.T) {
	hook := &recordingHook{}
	st := storage.Observed(memory.New(), "memory", hook)
	ctx := context.Background()

	app, ok := st.(storage.Appender)
	if !ok {
		t.Fatal("observed store lost Append")
	}
	_, _ = app.Append(ctx, "c", []map[string]any{{"a": 1}})
	_, _, _ = st.Newest(ctx, "c")
	_, _ = st.After(ctx, "c", cursor.Key{}, 10)
	_, _ = st.Stats(ctx, "c")

	want := []string{"append", "newest", "after", "stats"}
	if len(hook.calls) != len(want) {
		t.Fatalf("calls = %+v", hook.calls)
	}
	for i, op := range want {
		if hook.calls[i].op != op || hook.calls[i].backend != "memory" || hook.calls[i].failed {
			t.Fatalf("call %d = %+v", i, hook.calls[i])
		}
	}
}

func TestObservedRecordsFailures(t *testing.T) {
	hook := &recordingHook{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := storage.Observed(memory.New(), "memory", hook)
	_, _ = st.After(ctx, "c", cursor.Key{}, 1)
	if len(hook.calls) != 1 || !hook.calls[0].failed {
		t.Fatalf("calls = %+v", hook.calls)
	}
}
