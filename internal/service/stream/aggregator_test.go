package stream

import (
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/schema"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashwinyue/next-assistants/internal/metrics"
)

// recordingSource 记录 Recv 调用次数
type recordingSource struct {
	items  []string
	err    error
	calls  int
	closed bool
}

func (s *recordingSource) Recv() (string, error) {
	if s.calls >= len(s.items) {
		s.calls++
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	item := s.items[s.calls]
	s.calls++
	return item, nil
}

func (s *recordingSource) Close() { s.closed = true }

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{
			name:      "empty stream",
			fragments: nil,
			want:      "",
		},
		{
			name:      "concatenates in order",
			fragments: []string{`data: {"response":"Hel"}`, `data: {"response":"lo"}`, "data: [DONE]"},
			want:      "Hello",
		},
		{
			name:      "distinct growing fragments are both kept",
			fragments: []string{`data: {"response":"Hel"}`, `data: {"response":"Hello"}`, "data: [DONE]"},
			want:      "HelHello",
		},
		{
			name:      "identical consecutive fragment dropped",
			fragments: []string{`data: {"response":"a"}`, `data: {"response":"a"}`, `data: {"response":"b"}`},
			want:      "ab",
		},
		{
			name:      "non-consecutive repeat kept",
			fragments: []string{`data: {"response":"a"}`, `data: {"response":"b"}`, `data: {"response":"a"}`},
			want:      "aba",
		},
		{
			name:      "unparsable fragment skipped",
			fragments: []string{`data: {"response":"x"}`, `data: {broken`, `data: {"response":"y"}`},
			want:      "xy",
		},
		{
			name:      "prefix without space",
			fragments: []string{`data:{"response":"x"}`},
			want:      "x",
		},
		{
			name:      "blank lines and comments ignored",
			fragments: []string{"", ": keep-alive", `data: {"response":"x"}`},
			want:      "x",
		},
		{
			name:      "empty response does not reset dedup",
			fragments: []string{`data: {"response":"a"}`, `data: {"response":""}`, `data: {}`, `data: {"response":"a"}`},
			want:      "a",
		},
		{
			name:      "payload without framing prefix",
			fragments: []string{`{"response":"raw"}`},
			want:      "raw",
		},
	}

	agg := NewAggregator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := agg.Aggregate(schema.StreamReaderFromArray(tt.fragments))
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Aggregate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregate_ColonPayloadIsNotComment(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	before := promtest.ToFloat64(metrics.StreamFragmentsSkipped)

	got, err := NewAggregator(zap.New(core)).Aggregate(schema.StreamReaderFromArray([]string{
		": keep-alive",
		"data: :x",
		`data: {"response":"ok"}`,
	}))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Aggregate() = %q, want %q", got, "ok")
	}
	if n := logs.FilterMessage("skip unparsable fragment").Len(); n != 1 {
		t.Errorf("unparsable warnings = %d, want 1", n)
	}
	if d := promtest.ToFloat64(metrics.StreamFragmentsSkipped) - before; d != 1 {
		t.Errorf("skipped fragments metric grew by %v, want 1", d)
	}
}

func TestAggregate_StopsAtDone(t *testing.T) {
	src := &recordingSource{items: []string{
		`data: {"response":"a"}`,
		"data: [DONE]",
		`data: {"response":"never"}`,
	}}

	got, err := NewAggregator(nil).Aggregate(src)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got != "a" {
		t.Errorf("Aggregate() = %q, want %q", got, "a")
	}
	if src.calls != 2 {
		t.Errorf("Recv called %d times, want 2", src.calls)
	}
	if !src.closed {
		t.Error("source should be closed")
	}
}

func TestAggregate_SourceError(t *testing.T) {
	boom := errors.New("connection reset")
	src := &recordingSource{items: []string{`data: {"response":"partial"}`}, err: boom}

	got, err := NewAggregator(nil).Aggregate(src)
	if !errors.Is(err, boom) {
		t.Fatalf("Aggregate() error = %v, want %v", err, boom)
	}
	if got != "partial" {
		t.Errorf("Aggregate() = %q, want %q", got, "partial")
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	frames := []string{Frame(`quote " and \ slash`), Frame("\n"), DoneFrame(), Frame("ignored")}
	got, err := NewAggregator(nil).Aggregate(schema.StreamReaderFromArray(frames))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if want := "quote \" and \\ slash\n"; got != want {
		t.Errorf("Aggregate() = %q, want %q", got, want)
	}
}

func TestEach(t *testing.T) {
	src := schema.StreamReaderFromArray([]string{Frame("a"), Frame("a"), Frame("b"), DoneFrame(), Frame("c")})

	var deltas []string
	err := NewAggregator(nil).Each(src, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if len(deltas) != 2 || deltas[0] != "a" || deltas[1] != "b" {
		t.Errorf("deltas = %q, want [a b]", deltas)
	}
}

func TestEach_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("client gone")
	src := &recordingSource{items: []string{Frame("a"), Frame("b"), Frame("c")}}

	err := NewAggregator(nil).Each(src, func(delta string) error {
		if delta == "b" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Each() error = %v, want %v", err, stop)
	}
	if src.calls != 2 {
		t.Errorf("Recv called %d times, want 2", src.calls)
	}
	if !src.closed {
		t.Error("source should be closed")
	}
}
