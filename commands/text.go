package commands

import (
	"strings"
)

// indentation is the indentation of every line of an examples block.
const indentation = `  `

// longDesc normalizes a long description written as an indented raw string.
func longDesc(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.trim().dedent().string
}

// examples normalizes an examples block.
func examples(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.trim().indent().string
}

type normalizer struct {
	string
}

func (s normalizer) trim() normalizer {
	s.string = strings.TrimSpace(s.string)

	return s
}

func (s normalizer) dedent() normalizer {
	lines := make([]string, 0, strings.Count(s.string, "\n")+1)
	for line := range strings.SplitSeq(s.string, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	s.string = strings.Join(lines, "\n")

	return s
}

func (s normalizer) indent() normalizer {
	s = s.dedent()

	lines := strings.Split(s.string, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indentation + line
		}
	}
	s.string = strings.Join(lines, "\n")

	return s
}
