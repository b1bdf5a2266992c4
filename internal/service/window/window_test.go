package window

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/service/token"
)

// textOf 生成估算值恰好为 tokens 的文本
func textOf(tokens int) string {
	return strings.Repeat("x", tokens*4)
}

func msg(role string, tokens int, tag string) *model.Message {
	return &model.Message{Role: role, Content: tag + textOf(tokens)[len(tag):]}
}

func contents(msgs []*schema.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content[:1]
	}
	return out
}

func TestBuild(t *testing.T) {
	instructions := textOf(100)

	tests := []struct {
		name         string
		history      []*model.Message // 从新到旧
		budget       int
		wantOrder    []string
		wantSelected int
		wantUsed     int
	}{
		{
			name: "only newest fits",
			history: []*model.Message{
				msg(model.RoleUser, 50, "c"),
				msg(model.RoleAssistant, 50, "b"),
				msg(model.RoleUser, 50, "a"),
			},
			budget:       180,
			wantOrder:    []string{"system:x", "user:c"},
			wantSelected: 1,
			wantUsed:     150,
		},
		{
			name: "equal to budget is excluded",
			history: []*model.Message{
				msg(model.RoleUser, 80, "a"),
			},
			budget:       180,
			wantOrder:    []string{"system:x"},
			wantSelected: 0,
			wantUsed:     100,
		},
		{
			name: "skips oversized but keeps scanning older",
			history: []*model.Message{
				msg(model.RoleUser, 20, "c"),
				msg(model.RoleAssistant, 500, "b"),
				msg(model.RoleUser, 20, "a"),
			},
			budget:       180,
			wantOrder:    []string{"system:x", "user:a", "user:c"},
			wantSelected: 2,
			wantUsed:     140,
		},
		{
			name: "instructions alone exceed budget",
			history: []*model.Message{
				msg(model.RoleUser, 1, "a"),
			},
			budget:       50,
			wantOrder:    []string{"system:x"},
			wantSelected: 0,
			wantUsed:     100,
		},
		{
			name: "unbounded keeps everything chronologically",
			history: []*model.Message{
				msg(model.RoleAssistant, 5000, "c"),
				msg(model.RoleUser, 5000, "b"),
				msg(model.RoleUser, 5000, "a"),
			},
			budget:       Unbounded,
			wantOrder:    []string{"system:x", "user:a", "user:b", "assistant:c"},
			wantSelected: 3,
			wantUsed:     15100,
		},
		{
			name:         "empty history",
			budget:       180,
			wantOrder:    []string{"system:x"},
			wantSelected: 0,
			wantUsed:     100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Build(tt.history, instructions, tt.budget)

			got := contents(w.Messages)
			if strings.Join(got, ",") != strings.Join(tt.wantOrder, ",") {
				t.Errorf("order = %v, want %v", got, tt.wantOrder)
			}
			if w.Budget.Selected != tt.wantSelected {
				t.Errorf("Selected = %d, want %d", w.Budget.Selected, tt.wantSelected)
			}
			if w.Budget.UsedTokens != tt.wantUsed {
				t.Errorf("UsedTokens = %d, want %d", w.Budget.UsedTokens, tt.wantUsed)
			}
			if w.Budget.MaxTokens != tt.budget {
				t.Errorf("MaxTokens = %d, want %d", w.Budget.MaxTokens, tt.budget)
			}
		})
	}
}

func TestBuild_SelectedStayBelowBudget(t *testing.T) {
	instructions := "be brief"
	var history []*model.Message
	for i := 0; i < 40; i++ {
		history = append(history, &model.Message{Role: model.RoleUser, Content: textOf(i*7%31 + 1)})
	}

	for _, budget := range []int{1, 10, 50, 100, 300} {
		w := Build(history, instructions, budget)
		sum := token.Estimate(instructions)
		for _, m := range w.Messages[1:] {
			sum += token.Estimate(m.Content)
		}
		if w.Budget.Selected > 0 && sum >= budget {
			t.Errorf("budget %d: selected total %d not below budget", budget, sum)
		}
		if w.Messages[0].Role != schema.System || w.Messages[0].Content != instructions {
			t.Errorf("budget %d: first message should be the system instructions", budget)
		}
	}
}
