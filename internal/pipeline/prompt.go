package pipeline

import (
	"fmt"
	"strings"

	"regenai-go/internal/model"
)

// Persona 是每个提示词开头的角色设定。
const Persona = "You are an agronomy assistant. Use user's land details, recent weather, and market trends to recommend crops, target markets, and best options. Be concise, friendly, and actionable."

const searchInstruction = "IMPORTANT: The web search results above are the most recent information available. " +
	"Use them for anything time-sensitive such as prices, news or forecasts, mention the source when you do, " +
	"and do not invent figures that are not in these results."

// BuildPrompt 按固定顺序拼装提示词：角色设定、档案、天气与市场、搜索结果、最近几轮对话、当前消息。
// history 只取最后 exchanges 轮（每轮一问一答）。
func BuildPrompt(form *model.FormResponse, ac model.AdvisoryContext, history []model.ChatTurn, message string, exchanges int) string {
	var b strings.Builder
	b.WriteString(Persona)
	b.WriteString("\n\n")

	writeProfile(&b, form)
	writeContext(&b, ac)
	writeSearch(&b, ac.Search)
	writeHistory(&b, history, exchanges)

	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}

func writeProfile(b *strings.Builder, form *model.FormResponse) {
	fields := form.ProfileFields()
	if len(fields) == 0 {
		b.WriteString("Farm profile: not provided yet. If the answer depends on land details, ask the farmer to fill in the land profile form.\n\n")
		return
	}
	b.WriteString("Farm profile:\n")
	for _, f := range fields {
		fmt.Fprintf(b, "- %s: %s\n", f.Label, f.Value)
	}
	b.WriteString("\n")
}

func writeContext(b *strings.Builder, ac model.AdvisoryContext) {
	w := ac.Weather
	// 只有地点没有内容的天气不输出
	hasWeather := w.Summary != "" || w.AirQuality != ""
	if !hasWeather && ac.Market.IsEmpty() {
		return
	}
	b.WriteString("Context:\n")
	if w.Summary != "" {
		if w.Location != "" {
			fmt.Fprintf(b, "- Weather (%s): %s\n", w.Location, w.Summary)
		} else {
			fmt.Fprintf(b, "- Weather: %s\n", w.Summary)
		}
	}
	if w.AirQuality != "" {
		fmt.Fprintf(b, "- Air quality: %s\n", w.AirQuality)
	}
	if m := ac.Market; !m.IsEmpty() {
		if m.Goal != "" {
			fmt.Fprintf(b, "- Farmer goal: %s\n", m.Goal)
		}
		if len(m.DemandTrends) > 0 {
			fmt.Fprintf(b, "- Market trends: %s\n", strings.Join(m.DemandTrends, "; "))
		}
	}
	b.WriteString("\n")
}

func writeSearch(b *strings.Builder, s model.SearchOutcome) {
	if !s.HasResults() {
		return
	}
	b.WriteString("Web search results:\n")
	if s.Answer != "" {
		fmt.Fprintf(b, "Summary: %s\n", s.Answer)
	}
	for i, r := range s.Results {
		fmt.Fprintf(b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	b.WriteString(searchInstruction)
	b.WriteString("\n\n")
}

func writeHistory(b *strings.Builder, history []model.ChatTurn, exchanges int) {
	recent := tail(history, exchanges*2)
	if len(recent) == 0 {
		return
	}
	b.WriteString("Conversation so far:\n")
	for _, t := range recent {
		speaker := "User"
		if t.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(b, "%s: %s\n", speaker, t.Content)
	}
	b.WriteString("\n")
}

// tail 返回最后 n 条且以 user 开头的记录，保证一问一答成对。
func tail(turns []model.ChatTurn, n int) []model.ChatTurn {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	for len(turns) > 0 && turns[0].Role != model.RoleUser {
		turns = turns[1:]
	}
	return turns
}
