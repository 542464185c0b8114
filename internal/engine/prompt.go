package engine

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockqa/internal/llm"
)

const systemPrompt = `You are a financial analyst assistant. Answer questions about a single stock
using only the numbered context excerpts provided. Cite excerpts by number, e.g. [2].
Be specific: quote figures and dates from the context. If the context does not contain
the answer, say so plainly. Do not give personalized investment advice.`

func buildMessages(question, symbol string, chunks []Chunk) []llm.Message {
	var ctx strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&ctx, "[%d] %s (%s, %s", i+1, c.Doc.Title, c.Doc.Type, c.Doc.Source)
		if !c.Doc.PublishedDate.IsZero() {
			fmt.Fprintf(&ctx, ", %s", c.Doc.PublishedDate.UTC().Format("2006-01-02"))
		}
		fmt.Fprintf(&ctx, ")\n%s\n\n", c.Text)
	}

	user := fmt.Sprintf(`Stock symbol: %s

Question:
%s

Context:
%s`, symbol, question, ctx.String())

	return []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(user),
	}
}
