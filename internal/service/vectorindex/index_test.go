package vectorindex

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

// ========== fakes ==========

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	return out, nil
}

type fakeStore struct {
	entries   map[string]Entry
	deleted   []string
	matches   []Match
	failIDs   map[string]bool
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]Entry{}, failIDs: map[string]bool{}}
}

func (s *fakeStore) Upsert(ctx context.Context, entries []Entry) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	var failed []string
	for _, e := range entries {
		id := e.Key.String()
		if s.failIDs[id] {
			failed = append(failed, id)
			continue
		}
		s.entries[id] = e
	}
	if len(failed) > 0 {
		return &PartialUpsertError{Failed: failed}
	}
	return nil
}

func (s *fakeStore) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	if len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *fakeStore) Delete(ctx context.Context, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *fakeStore) ids() []string {
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type memLedger map[string]int

func (l memLedger) Get(ctx context.Context, sourceID string) (int, error) { return l[sourceID], nil }
func (l memLedger) Set(ctx context.Context, sourceID string, n int) error {
	l[sourceID] = n
	return nil
}
func (l memLedger) Delete(ctx context.Context, sourceIDs ...string) error {
	for _, id := range sourceIDs {
		delete(l, id)
	}
	return nil
}

func longText(words int) string {
	return strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", words/5))
}

// ========== Index ==========

func TestIndex_ShortTextSingleChunk(t *testing.T) {
	store := newFakeStore()
	ledger := memLedger{}
	x := New(&fakeEmbedder{}, store, ledger, nil)

	if err := x.Index(context.Background(), "msg1", "hello world"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if got := store.ids(); strings.Join(got, ",") != "msg1-0" {
		t.Errorf("ids = %v, want [msg1-0]", got)
	}
	if ledger["msg1"] != 1 {
		t.Errorf("ledger = %d, want 1", ledger["msg1"])
	}
}

func TestIndex_LongTextManyChunks(t *testing.T) {
	store := newFakeStore()
	ledger := memLedger{}
	x := New(&fakeEmbedder{}, store, ledger, nil)

	if err := x.Index(context.Background(), "msg1", longText(1000)); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	n := ledger["msg1"]
	if n < 2 || len(store.entries) != n {
		t.Fatalf("ledger = %d, entries = %d", n, len(store.entries))
	}
	for i := 0; i < n; i++ {
		id := Key{SourceID: "msg1", ChunkIndex: i}.String()
		if _, ok := store.entries[id]; !ok {
			t.Errorf("missing %s", id)
		}
	}
}

func TestIndex_ReindexShrinks(t *testing.T) {
	store := newFakeStore()
	ledger := memLedger{}
	x := New(&fakeEmbedder{}, store, ledger, nil)
	ctx := context.Background()

	if err := x.Index(ctx, "m", longText(1000)); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := x.Index(ctx, "m", "short now"); err != nil {
		t.Fatalf("reindex error = %v", err)
	}
	if got := store.ids(); strings.Join(got, ",") != "m-0" {
		t.Errorf("ids after shrink = %v, want [m-0]", got)
	}
	if ledger["m"] != 1 {
		t.Errorf("ledger = %d, want 1", ledger["m"])
	}
}

func TestIndex_WhitespaceOnlyIndexesNothing(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	x := New(emb, store, memLedger{}, nil)

	if err := x.Index(context.Background(), "m", "  \n "); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(store.entries) != 0 || emb.calls != 0 {
		t.Errorf("entries = %d, embed calls = %d, want 0/0", len(store.entries), emb.calls)
	}
}

func TestIndex_Errors(t *testing.T) {
	embedErr := errors.New("embedding unavailable")

	tests := []struct {
		name     string
		sourceID string
		embedder *fakeEmbedder
		store    func() *fakeStore
		check    func(t *testing.T, err error)
	}{
		{
			name:     "source id with separator",
			sourceID: "a-b",
			embedder: &fakeEmbedder{},
			store:    newFakeStore,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidSourceID) {
					t.Errorf("error = %v, want ErrInvalidSourceID", err)
				}
			},
		},
		{
			name:     "empty source id",
			sourceID: "",
			embedder: &fakeEmbedder{},
			store:    newFakeStore,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidSourceID) {
					t.Errorf("error = %v, want ErrInvalidSourceID", err)
				}
			},
		},
		{
			name:     "embedding failure propagates",
			sourceID: "m",
			embedder: &fakeEmbedder{err: embedErr},
			store:    newFakeStore,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, embedErr) {
					t.Errorf("error = %v, want %v", err, embedErr)
				}
			},
		},
		{
			name:     "partial upsert surfaces failed ids",
			sourceID: "m",
			embedder: &fakeEmbedder{},
			store: func() *fakeStore {
				s := newFakeStore()
				s.failIDs["m-0"] = true
				return s
			},
			check: func(t *testing.T, err error) {
				var pe *PartialUpsertError
				if !errors.As(err, &pe) {
					t.Fatalf("error = %v, want *PartialUpsertError", err)
				}
				if len(pe.Failed) != 1 || pe.Failed[0] != "m-0" {
					t.Errorf("Failed = %v, want [m-0]", pe.Failed)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := New(tt.embedder, tt.store(), memLedger{}, nil)
			err := x.Index(context.Background(), tt.sourceID, "some text")
			if err == nil {
				t.Fatal("Index() error = nil")
			}
			tt.check(t, err)
		})
	}
}

// ========== Query ==========

func TestQuery_DedupesSourcesKeepingRank(t *testing.T) {
	store := newFakeStore()
	store.matches = []Match{
		{ID: "b-3", Score: 0.9},
		{ID: "a-0", Score: 0.8},
		{ID: "b-0", Score: 0.7},
		{ID: "garbage", Score: 0.6},
		{ID: "c-1", Score: 0.5},
	}
	x := New(&fakeEmbedder{}, store, memLedger{}, nil)

	got, err := x.Query(context.Background(), "question", 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if strings.Join(got, ",") != "b,a,c" {
		t.Errorf("Query() = %v, want [b a c]", got)
	}
}

func TestQuery_EmbeddingError(t *testing.T) {
	boom := errors.New("boom")
	x := New(&fakeEmbedder{err: boom}, newFakeStore(), memLedger{}, nil)
	if _, err := x.Query(context.Background(), "q", 3); !errors.Is(err, boom) {
		t.Errorf("Query() error = %v, want %v", err, boom)
	}
}

// ========== DeleteBySource ==========

func TestDeleteBySource_EnumeratesChunks(t *testing.T) {
	store := newFakeStore()
	ledger := memLedger{"42": 3, "7": 1}
	x := New(&fakeEmbedder{}, store, ledger, nil)

	if err := x.DeleteBySource(context.Background(), []string{"42"}); err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}
	if got := strings.Join(store.deleted, ","); got != "42-0,42-1,42-2" {
		t.Errorf("deleted = %s, want 42-0,42-1,42-2", got)
	}
	if _, ok := ledger["42"]; ok {
		t.Error("ledger entry for 42 should be removed")
	}
	if ledger["7"] != 1 {
		t.Error("other sources must be untouched")
	}
}

func TestDeleteBySource_UnknownSourceIsNoop(t *testing.T) {
	store := newFakeStore()
	x := New(&fakeEmbedder{}, store, memLedger{}, nil)

	if err := x.DeleteBySource(context.Background(), []string{"missing"}); err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none", store.deleted)
	}
}

func TestDeleteBySource_RejectsInvalidID(t *testing.T) {
	x := New(&fakeEmbedder{}, newFakeStore(), memLedger{}, nil)
	err := x.DeleteBySource(context.Background(), []string{"ok", "not-ok"})
	if !errors.Is(err, ErrInvalidSourceID) {
		t.Errorf("DeleteBySource() error = %v, want ErrInvalidSourceID", err)
	}
}

// ========== Key ==========

func TestParseKey(t *testing.T) {
	tests := []struct {
		id      string
		want    Key
		wantErr bool
	}{
		{"msg_abc-0", Key{"msg_abc", 0}, false},
		{"42-12", Key{"42", 12}, false},
		{"nodash", Key{}, true},
		{"-3", Key{}, true},
		{"a-x", Key{}, true},
		{"a-1-2", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseKey(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.id {
				t.Errorf("round trip = %q, want %q", got.String(), tt.id)
			}
		})
	}
}
