package reading

import (
	"regexp"
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
)

var sentenceEndRegex = regexp.MustCompile(`([.!?。！？])\s+`)

// SplitSentences breaks text into sentences on terminal punctuation.
func SplitSentences(text string) []string {
	marked := sentenceEndRegex.ReplaceAllString(text, "$1\x00")
	var sentences []string
	for _, part := range strings.Split(marked, "\x00") {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// HeuristicBrief builds the offline stage-1 summary: the first three
// sentences as context, the next three as the key insight.
func HeuristicBrief(content string) string {
	sentences := SplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	first := sentences
	if len(first) > 3 {
		first = sentences[:3]
	}
	paragraphs := []string{strings.Join(first, " ")}

	if len(sentences) > 3 {
		second := sentences[3:]
		if len(second) > 3 {
			second = second[:3]
		}
		paragraphs = append(paragraphs, strings.Join(second, " "))
	}
	return strings.Join(paragraphs, "\n\n")
}

// HeuristicAnswer builds the offline stage-4 finding: the first two
// sentences sharing a keyword with the question, or the first sentence when
// nothing matches. Confidence starts at 0.4 and grows with each match.
func HeuristicAnswer(task core.TaskItem, content, abstract string) core.TaskFinding {
	text := content
	if strings.TrimSpace(text) == "" {
		text = abstract
	}
	sentences := SplitSentences(text)
	keywords := questionKeywords(task.Question)

	var matches []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				matches = append(matches, sentence)
				break
			}
		}
		if len(matches) == 2 {
			break
		}
	}

	answer := strings.Join(matches, " ")
	if answer == "" && len(sentences) > 0 {
		answer = sentences[0]
	}
	if answer == "" {
		answer = abstract
	}

	confidence := 0.4 + 0.3*float64(len(matches))
	return core.TaskFinding{
		Task:       task,
		Answer:     answer,
		Confidence: clampConfidence(confidence),
	}
}

// questionKeywords extracts content words of four or more characters from a
// question, enough to anchor a lexical match.
func questionKeywords(question string) []string {
	var keywords []string
	for _, token := range regexp.MustCompile(`[a-zA-Z0-9]+`).FindAllString(strings.ToLower(question), -1) {
		if len(token) >= 4 {
			keywords = append(keywords, token)
		}
	}
	return keywords
}
