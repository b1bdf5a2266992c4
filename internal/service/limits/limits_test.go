package limits

import (
	"testing"

	"github.com/ashwinyue/next-assistants/internal/config"
)

func TestTable(t *testing.T) {
	table := NewTable([]config.ModelLimits{
		{ID: "@cf/meta/llama-2-7b-chat-fp16", Tokens: 256, StreamTokens: 2500, Context: 3072},
		{ID: "Mixed-Case", Tokens: 10},
		{ID: ""},
	})

	tests := []struct {
		name       string
		model      string
		wantOK     bool
		wantBudget int
		budgetOK   bool
	}{
		{"configured", "@cf/meta/llama-2-7b-chat-fp16", true, 2500, true},
		{"case insensitive", "mixed-case", true, 0, false},
		{"unknown", "gpt-unknown", false, 0, false},
		{"empty id not registered", "", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := table.Lookup(tt.model)
			if ok != tt.wantOK {
				t.Errorf("Lookup(%q) ok = %v, want %v", tt.model, ok, tt.wantOK)
			}
			budget, ok := table.StreamBudget(tt.model)
			if budget != tt.wantBudget || ok != tt.budgetOK {
				t.Errorf("StreamBudget(%q) = (%d, %v), want (%d, %v)", tt.model, budget, ok, tt.wantBudget, tt.budgetOK)
			}
		})
	}
}

func TestTable_Nil(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup("any"); ok {
		t.Error("nil table should not find anything")
	}
}

func TestTable_Entries(t *testing.T) {
	table := NewTable([]config.ModelLimits{
		{ID: "b", StreamTokens: 2},
		{ID: "a", StreamTokens: 1},
	})
	got := table.Entries()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[1].StreamTokens != 2 {
		t.Errorf("Entries() = %+v", got)
	}
	var nilTable *Table
	if nilTable.Entries() != nil {
		t.Error("nil table should have no entries")
	}
}
