package therapist

import "strings"

// Farewell is said when the user ends the conversation.
const Farewell = "Take care of yourself. Remember, I'm here whenever you need support. Your progress and our conversations are saved for next time."

var farewellWords = map[string]bool{
	"quit":    true,
	"exit":    true,
	"goodbye": true,
	"bye":     true,
}

// IsFarewell reports whether text, ignoring case and surrounding space, is
// one of the words that end a conversation.
func IsFarewell(text string) bool {
	return farewellWords[strings.ToLower(strings.TrimSpace(text))]
}
