package services

import "strings"

// Canned, persona-consistent replies for trivial conversational turns.
// Matching one of these skips retrieval and generation entirely.
var fastResponses = map[string]string{
	"greeting": "Hello! I'm here to support you. How are you feeling today?",
	"thanks":   "You're very welcome. I'm glad I could help. Is there anything else on your mind?",
	"farewell": "Take care of yourself. Remember, I'm here whenever you need to talk.",
	"help":     "I'm here to listen and support you with whatever you're going through. What's on your mind today?",
	"status":   "Thank you for asking! I'm here and ready to listen. More importantly, how are you doing?",
}

// fastPatterns maps trimmed, lower-cased messages to a reply key.
var fastPatterns = map[string]string{
	"hi":            "greeting",
	"hello":         "greeting",
	"hey":           "greeting",
	"hi there":      "greeting",
	"hello there":   "greeting",
	"good morning":  "greeting",
	"good evening":  "greeting",
	"thanks":        "thanks",
	"thank you":     "thanks",
	"thx":           "thanks",
	"bye":           "farewell",
	"goodbye":       "farewell",
	"see you":       "farewell",
	"good night":    "farewell",
	"help":          "help",
	"can you help":  "help",
	"how are you":   "status",
	"you there":     "status",
	"are you there": "status",
}

func normalizeFastPath(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	return strings.TrimRight(msg, "!?. ")
}

// IsFastPath reports whether the message matches a trivial
// conversational pattern answered without retrieval or generation.
func IsFastPath(message string) bool {
	_, ok := fastPatterns[normalizeFastPath(message)]
	return ok
}

// FastResponse returns the canned reply for a matched pattern, or the
// empty string when the message is not a fast-path turn.
func FastResponse(message string) string {
	key, ok := fastPatterns[normalizeFastPath(message)]
	if !ok {
		return ""
	}
	return fastResponses[key]
}
