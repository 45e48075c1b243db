package llm

import "context"

// Summarizer is the external summarization capability the pipeline
// depends on: plain text in, condensed summary out. Implementations are
// subject to an input-size limit enforced by the summarize stage.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}
