package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/next-assistants/internal/model"
)

func ids(messages []*model.Message) string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return strings.Join(out, ",")
}

// seedThread 写入一个线程与按顺序创建的消息 msg_1 ... msg_n
func seedThread(t *testing.T, threads *ThreadRepository, n int) {
	t.Helper()
	messages := make([]*model.Message, n)
	for i := range messages {
		messages[i] = &model.Message{
			ID:       "msg_" + string(rune('1'+i)),
			ThreadID: "thread_1",
			Role:     model.RoleUser,
			Content:  "hello",
			FileIDs:  []string{"file_" + string(rune('a'+i))},
		}
	}
	if err := threads.Create(context.Background(), &model.Thread{ID: "thread_1"}, messages...); err != nil {
		t.Fatalf("create thread: %v", err)
	}
}

func TestMessageRepository_ListCursors(t *testing.T) {
	db := newTestDB(t)
	seedThread(t, NewThreadRepository(db), 5)
	repo := NewMessageRepository(db)

	tests := []struct {
		name string
		opts ListOptions
		want string
	}{
		{"newest first", ListOptions{}, "msg_5,msg_4,msg_3,msg_2,msg_1"},
		{"oldest first", ListOptions{Order: "asc"}, "msg_1,msg_2,msg_3,msg_4,msg_5"},
		{"after desc", ListOptions{After: "msg_4", Limit: 2}, "msg_3,msg_2"},
		{"after asc", ListOptions{Order: "asc", After: "msg_2"}, "msg_3,msg_4,msg_5"},
		{"before desc", ListOptions{Before: "msg_2"}, "msg_5,msg_4,msg_3"},
		{"between", ListOptions{Order: "asc", After: "msg_1", Before: "msg_4"}, "msg_2,msg_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(context.Background(), "thread_1", tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("List() = %s, want %s", ids(got), tt.want)
			}
		})
	}
}

func TestMessageRepository_ListHonorsContext(t *testing.T) {
	db := newTestDB(t)
	seedThread(t, NewThreadRepository(db), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMessageRepository(db).List(ctx, "thread_1", ListOptions{After: "msg_2"}); err == nil {
		t.Error("List() with cancelled context should fail")
	}
}

func TestMessageRepository_HistoryAndFiles(t *testing.T) {
	db := newTestDB(t)
	seedThread(t, NewThreadRepository(db), 3)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	history, err := repo.ListHistory(ctx, "thread_1")
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if ids(history) != "msg_3,msg_2,msg_1" {
		t.Errorf("ListHistory() = %s, want newest first", ids(history))
	}

	files, err := repo.ListFileIDs(ctx, "thread_1")
	if err != nil {
		t.Fatalf("ListFileIDs() error = %v", err)
	}
	if len(files) != 3 || files[0][0] != "file_c" || files[2][0] != "file_a" {
		t.Errorf("ListFileIDs() = %v", files)
	}
}

func TestMessageRepository_GetAndUpdateMetadata(t *testing.T) {
	db := newTestDB(t)
	seedThread(t, NewThreadRepository(db), 1)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	if err := repo.UpdateMetadata(ctx, "thread_1", "msg_1", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	msg, err := repo.GetByID(ctx, "thread_1", "msg_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if msg.Metadata["k"] != "v" || msg.Content != "hello" {
		t.Errorf("message = %+v", msg)
	}
	if _, err := repo.GetByID(ctx, "thread_other", "msg_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(other thread) error = %v, want ErrNotFound", err)
	}
}

func TestThreadRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	threads := NewThreadRepository(db)
	seedThread(t, threads, 2)
	ctx := context.Background()

	deleted, err := threads.Delete(ctx, "thread_1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted message ids = %v, want 2", deleted)
	}
	if n := countMessages(t, db, "thread_1"); n != 0 {
		t.Errorf("messages left = %d", n)
	}
	if _, err := threads.GetByID(ctx, "thread_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := threads.Delete(ctx, "thread_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
