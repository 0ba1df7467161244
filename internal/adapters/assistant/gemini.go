package assistant

// gemini.go — the natural-language portfolio assistant.
//
// Consumes the portfolio snapshot plus free-text input and returns free
// text. No structured contract is enforced; failures come back as errors
// for the caller to print.

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

const defaultModel = "gemini-2.0-flash"

// Gemini implements ports.Assistant over a Gemini chat session.
type Gemini struct {
	client *genai.Client
	model  string
	chat   *genai.Chat
}

var _ ports.Assistant = (*Gemini)(nil)

// NewGemini initializes the Gemini client. Credentials come from the
// environment (GEMINI_API_KEY).
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("assistant.NewGemini: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Ask sends one question with the current snapshot as context. The chat
// session persists across calls so follow-up questions keep their history.
func (g *Gemini) Ask(ctx context.Context, portfolio []domain.PortfolioEntry, fills []domain.Fill, question string) (string, error) {
	if g.chat == nil {
		chat, err := g.client.Chats.Create(ctx, g.model, nil, nil)
		if err != nil {
			return "", fmt.Errorf("assistant.Ask: create chat: %w", err)
		}
		g.chat = chat
	}

	prompt := BuildPrompt(portfolio, fills, question)
	resp, err := g.chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("assistant.Ask: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("assistant.Ask: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// BuildPrompt assembles the portfolio-manager prompt around the question.
func BuildPrompt(portfolio []domain.PortfolioEntry, fills []domain.Fill, question string) string {
	var sb strings.Builder

	sb.WriteString(`You are an AI portfolio manager responsible for analyzing my portfolio.
Your tasks are the following:
1.) Evaluate risk exposures of my current holdings
2.) Analyze my open limit orders and their potential impact
3.) Provide insights into portfolio health, diversification, trade adjustments, etc.
4.) Speculate on the market outlook based on current market conditions
5.) Identify potential market risks and suggest risk management strategies

Here is my portfolio:
`)
	if len(portfolio) == 0 {
		sb.WriteString("  (no positions)\n")
	}
	for _, p := range portfolio {
		fmt.Fprintf(&sb, "  %s: %.0f shares, avg cost $%.2f, last $%.2f, unrealized P&L $%.2f\n",
			p.Symbol, p.Quantity, p.AvgCost, p.LastPrice, p.UnrealizedPL())
	}

	if len(fills) > 0 {
		sb.WriteString("\nRecent fills (newest first):\n")
		for _, f := range fills {
			label := fmt.Sprintf("level %d", f.Level)
			if f.Level == domain.EntryLevel {
				label = "entry"
			}
			fmt.Fprintf(&sb, "  %s %s: %.0f @ $%.2f (%s)\n",
				f.Symbol, label, f.Qty, f.Price, f.FilledAt.Format("2006-01-02 15:04"))
		}
	}

	sb.WriteString("\nOverall, answer the following question with priority having that background: ")
	sb.WriteString(question)
	return sb.String()
}
