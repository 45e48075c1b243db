package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reObjMarker  = regexp.MustCompile(`^\d+\s+\d+\s+obj$`)
)

// Normalize collapses noisy whitespace from recognition output.
// Conservative: keeps line breaks; collapses >2 newlines into a single
// blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CleanStructuralNoise strips raw PDF structure markers and binary-looking
// characters from text that was decoded straight from a document file.
// Applied before summarization so the model never sees stream garbage.
func CleanStructuralNoise(raw string) string {
	var cleaned []string
	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			cleaned = append(cleaned, "")
			continue
		}
		lower := strings.ToLower(stripped)
		if strings.HasPrefix(lower, "%pdf") || strings.HasPrefix(lower, "%%eof") {
			continue
		}
		if lower == "endobj" || lower == "stream" || lower == "endstream" {
			continue
		}
		if reObjMarker.MatchString(stripped) {
			continue
		}
		cleaned = append(cleaned, stripped)
	}

	var b strings.Builder
	for _, r := range strings.Join(cleaned, "\n") {
		if r == '\n' || r == '\t' || (r >= 0x20 && r <= 0x7E) || r >= 0xA0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
