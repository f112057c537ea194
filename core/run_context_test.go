package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunContext_TraceTotalOrder(t *testing.T) {
	run := NewRunContext(context.Background(), "run-1", NewTask(TaskSearch, map[string]any{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run.Append(EventDispatch, "orchestrator", "a", "t1", "")
		}()
	}
	wg.Wait()

	trace := run.Trace()
	assert.Len(t, trace, 20)
	for i, e := range trace {
		assert.Equal(t, int64(i+1), e.Seq, "sequence must be gapless and monotonic")
	}
}

func TestRunContext_CuesSortedSourcesFIFO(t *testing.T) {
	run := NewRunContext(context.Background(), "run-1", NewTask(TaskSearch, map[string]any{}))

	run.RecordCue(Cue{Source: "zulu", Target: "guide", Data: map[string]any{"n": 1}})
	run.RecordCue(Cue{Source: "alpha", Target: "guide", Data: map[string]any{"n": 2}})
	run.RecordCue(Cue{Source: "alpha", Target: "guide", Data: map[string]any{"n": 3}})

	cues := run.CuesFor("guide")
	assert.Len(t, cues, 3)
	assert.Equal(t, "alpha", cues[0].Source)
	assert.Equal(t, 2, cues[0].Data["n"])
	assert.Equal(t, 3, cues[1].Data["n"], "per-source FIFO must hold")
	assert.Equal(t, "zulu", cues[2].Source)

	assert.Empty(t, run.CuesFor("other"))
}

func TestRunContext_SealDiscardsCuesKeepsTrace(t *testing.T) {
	run := NewRunContext(context.Background(), "run-1", NewTask(TaskSearch, map[string]any{}))
	run.Append(EventState, "", "", "t1", "received")
	run.RecordCue(Cue{Source: "a", Target: "b"})

	run.Seal()
	assert.True(t, run.Sealed())

	// The trace survives sealing; cues do not, and late writes are no-ops.
	run.Append(EventState, "", "", "t1", "late")
	run.RecordCue(Cue{Source: "a", Target: "b"})

	assert.Len(t, run.Trace(), 1)
	assert.Empty(t, run.CuesFor("b"))
}
