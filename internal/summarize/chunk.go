package summarize

import "strings"

// splitChunks breaks text into pieces of at most budget bytes, preferring
// paragraph boundaries, then line boundaries, and finally hard cuts for a
// single oversized line.
func splitChunks(text string, budget int) []string {
	if budget <= 0 || len(text) <= budget {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > budget {
			flush()
			for _, piece := range splitLines(para, budget) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(para) > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()

	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}

// splitLines splits an oversized paragraph on line breaks, hard-cutting
// any single line that still exceeds the budget.
func splitLines(para string, budget int) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}

	for _, line := range strings.Split(para, "\n") {
		for len(line) > budget {
			flush()
			cut := budget
			if idx := strings.LastIndex(line[:budget], " "); idx > budget/2 {
				cut = idx
			}
			out = append(out, strings.TrimSpace(line[:cut]))
			line = strings.TrimSpace(line[cut:])
		}
		if line == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return out
}
