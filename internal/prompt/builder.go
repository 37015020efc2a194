package prompt

import (
	"fmt"
	"strings"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// historyTurns is how many recent turns the concierge prompt carries.
const historyTurns = 3

// personas are the language-specific system persona literals. Unrecognized
// languages fall back to Japanese.
var personas = map[string]string{
	"ja": "あなたは日本の購入者とベトナムのオフショア開発企業をつなぐマーケットプレイスのAIコンシェルジュです。丁寧で簡潔な日本語で回答してください。",
	"en": "You are the AI concierge of a marketplace connecting Japanese buyers with Vietnamese offshore development companies. Answer politely and concisely in English.",
	"vi": "Bạn là trợ lý AI của sàn giao dịch kết nối người mua Nhật Bản với các công ty phát triển offshore Việt Nam. Hãy trả lời lịch sự và ngắn gọn bằng tiếng Việt.",
}

// instructions are the intent-specific fragments. IntentGeneral has none.
var instructions = map[entity.Intent]string{
	entity.IntentGreeting:     "The user is greeting you. Respond warmly and briefly introduce what the marketplace offers.",
	entity.IntentCompanyInfo:  "The user is asking about vendor companies. Describe how company profiles, reviews and expertise areas work, and point them to the company search.",
	entity.IntentPricing:      "The user is asking about pricing. Explain typical offshore development rate ranges and suggest requesting quotes from individual vendors.",
	entity.IntentFeatures:     "The user is asking about platform features. Summarize search, messaging, reviews and the admin dashboard.",
	entity.IntentSupport:      "The user needs support. Offer concrete next steps and mention the contact form for unresolved problems.",
	entity.IntentRegistration: "The user is asking about registration. Walk them through creating a buyer or vendor account.",
	entity.IntentSearchHelp:   "The user needs help searching. Explain filtering by technology, budget and company size.",
}

// Build composes the concierge prompt. Section order is fixed: persona,
// intent instruction, recent conversation, caller metadata, then the user
// message. Tests pin the ordering.
func Build(message string, it entity.Intent, language string, sess *entity.ChatSession, meta *entity.ClientMetadata) string {
	persona, ok := personas[language]
	if !ok {
		persona = personas["ja"]
	}

	sections := []string{persona}

	if instr, ok := instructions[it]; ok {
		sections = append(sections, instr)
	}

	if sess != nil && len(sess.Messages) > 0 {
		start := len(sess.Messages) - historyTurns*2
		if start < 0 {
			start = 0
		}
		lines := []string{"Previous conversation:"}
		for _, m := range sess.Messages[start:] {
			lines = append(lines, fmt.Sprintf("%s: %s", formatRole(m.Role), m.Content))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if meta != nil {
		var lines []string
		if meta.Page != "" {
			lines = append(lines, "Current page: "+meta.Page)
		}
		if meta.UserType != "" {
			lines = append(lines, "User type: "+meta.UserType)
		}
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	sections = append(sections, "User: "+message)
	return strings.Join(sections, "\n\n")
}

// BuildGeneral composes the prompt for the general chat endpoint: persona,
// caller-supplied previous messages, optional company marker, then the
// user message.
func BuildGeneral(message string, chatCtx *entity.ChatContext) string {
	sections := []string{personas["ja"]}

	if chatCtx != nil {
		if len(chatCtx.PreviousMessages) > 0 {
			lines := []string{"Previous conversation:"}
			for _, m := range chatCtx.PreviousMessages {
				lines = append(lines, fmt.Sprintf("%s: %s", formatRole(m.Role), m.Content))
			}
			sections = append(sections, strings.Join(lines, "\n"))
		}
		if chatCtx.CompanyID != "" {
			sections = append(sections, "The user is viewing company: "+chatCtx.CompanyID)
		}
	}

	sections = append(sections, "User: "+message)
	return strings.Join(sections, "\n\n")
}

func formatRole(role string) string {
	if role == "assistant" {
		return "Assistant"
	}
	return "User"
}
