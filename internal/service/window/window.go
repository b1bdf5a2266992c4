// Package window 在 token 预算内从历史消息构建模型上下文
package window

import (
	"math"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/service/token"
)

// Unbounded 模型未配置限额时使用的预算
const Unbounded = math.MaxInt

// Budget 本次构建的预算使用情况
type Budget struct {
	MaxTokens  int
	UsedTokens int
	Selected   int // 选中的历史消息数，不含 system
}

// Window 构建结果：system 在首位，其余按时间正序
type Window struct {
	Messages []*schema.Message
	Budget   Budget
}

// Build 从新到旧遍历 history，消息能完整放入剩余预算（used+est < budget）时选中，
// 放不下的跳过但继续尝试更旧的消息；最后补上 system 指令并反转为时间正序。
// history 必须按从新到旧排列。
func Build(history []*model.Message, instructions string, budget int) *Window {
	used := token.Estimate(instructions)

	selected := make([]*schema.Message, 0, len(history)+1)
	for _, msg := range history {
		est := token.Estimate(msg.Content)
		if used+est < budget {
			selected = append(selected, &schema.Message{
				Role:    roleToSchema(msg.Role),
				Content: msg.Content,
			})
			used += est
		}
	}
	n := len(selected)

	selected = append(selected, schema.SystemMessage(instructions))
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}

	return &Window{
		Messages: selected,
		Budget: Budget{
			MaxTokens:  budget,
			UsedTokens: used,
			Selected:   n,
		},
	}
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case model.RoleSystem:
		return schema.System
	case model.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}
