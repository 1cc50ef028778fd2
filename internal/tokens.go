package internal

import "unicode/utf8"

// CharsPerToken is the character-to-token ratio used by EstimateTokens.
const CharsPerToken = 4

// EstimateTokens approximates the model-token count of text as
// max(1, characters/4). It is a monotonic cost proxy for threshold checks,
// not a tokenizer; characters are counted as runes.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / CharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// EstimateMessages sums EstimateTokens over the content of each message.
func EstimateMessages(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
