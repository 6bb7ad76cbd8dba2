package rtevents

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/roundtable/internal/engine"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "issue:abc-123", Channel("abc-123"))
}

func TestLogSink_EmitScrubsTextFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(log)

	sink.Emit(model.EventRecord{
		Tick:      3,
		Phase:     "Feedback",
		EventType: "FEEDBACK_SUBMITTED",
		AgentID:   "agent-a",
		Payload: map[string]any{
			"comment": "api_key=sk-verysecretvalue should be rotated",
		},
		Level: model.LevelInfo,
	})

	out := buf.String()
	assert.Contains(t, out, "FEEDBACK_SUBMITTED")
	assert.Contains(t, out, "agent-a")
	assert.NotContains(t, out, "sk-verysecretvalue")
	assert.Contains(t, out, "[REDACTED]")
}

func TestLogSink_EmitLevelsRouteToDifferentHandlers(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(log)

	sink.Emit(model.EventRecord{EventType: "DEBUG_EVENT", Level: model.LevelDebug})
	sink.Emit(model.EventRecord{EventType: "WARN_EVENT", Level: model.LevelWarn})
	sink.Emit(model.EventRecord{EventType: "ERROR_EVENT", Level: model.LevelError, Message: "something broke"})

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "something broke")
}

func TestLogSink_SaveSnapshotIsANoOp(t *testing.T) {
	sink := NewLogSink(nil)
	assert.NotPanics(t, func() {
		sink.SaveSnapshot(engine.Snapshot{Tick: 1})
	})
}

type recordingSink struct {
	emitted   []model.EventRecord
	snapshots []engine.Snapshot
}

func (r *recordingSink) Emit(rec model.EventRecord)     { r.emitted = append(r.emitted, rec) }
func (r *recordingSink) SaveSnapshot(s engine.Snapshot) { r.snapshots = append(r.snapshots, s) }

func TestMultiSink_FansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	multi := NewMultiSink(a, b)

	rec := model.EventRecord{EventType: "TICK_ADVANCED"}
	multi.Emit(rec)
	multi.SaveSnapshot(engine.Snapshot{Tick: 4})

	require.Len(t, a.emitted, 1)
	require.Len(t, b.emitted, 1)
	assert.Equal(t, "TICK_ADVANCED", a.emitted[0].EventType)
	require.Len(t, a.snapshots, 1)
	require.Len(t, b.snapshots, 1)
	assert.Equal(t, 4, a.snapshots[0].Tick)
}

func TestMultiSink_EmptyIsANoOp(t *testing.T) {
	multi := NewMultiSink()
	assert.NotPanics(t, func() {
		multi.Emit(model.EventRecord{})
		multi.SaveSnapshot(engine.Snapshot{})
	})
}

func TestLogSink_IsTextFieldLeavesOtherPayloadUnscrubbed(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(log)

	sink.Emit(model.EventRecord{
		EventType: "STAKE_PLACED",
		Payload:   map[string]any{"stake_amount": 42},
	})

	assert.True(t, strings.Contains(buf.String(), "stake_amount=42"))
}
