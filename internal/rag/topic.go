package rag

import "strings"

// Keyword vocabularies for the fast topic check. The check is purely
// lexical so it can run before any embedding or retrieval work.
var offTopicKeywords = []string{
	"weather", "sports", "politics", "technology", "programming",
	"code", "recipe", "cooking", "travel", "movies", "games",
	"shopping", "news", "celebrity", "music", "math", "science",
	"history",
}

var mentalHealthKeywords = []string{
	"feel", "feeling", "emotion", "sad", "happy", "angry", "anxious",
	"stress", "worry", "depression", "anxiety", "therapy",
	"counseling", "mental", "health", "wellbeing", "mood", "thoughts",
	"thinking", "relationship", "family", "work stress", "burnout",
	"overwhelmed",
}

// IsOffTopic reports whether a message drifts outside the mental-health
// domain. A message is off-topic only when it contains an off-domain
// term and no mental-health term: the mental-health signal takes
// precedence when both are present.
func IsOffTopic(message string) bool {
	lower := strings.ToLower(message)

	hasOffTopic := false
	for _, kw := range offTopicKeywords {
		if strings.Contains(lower, kw) {
			hasOffTopic = true
			break
		}
	}
	if !hasOffTopic {
		return false
	}

	for _, kw := range mentalHealthKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
