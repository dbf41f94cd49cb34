package service

import (
	"context"
	"strings"
)

// Relationship intents understood by the template catalogue.
const (
	IntentLongTerm   = "long-term"
	IntentCasual     = "casual"
	IntentFriendship = "friendship"
	IntentOneNight   = "one-night"
)

// SuggestionProvider produces opening message suggestions.
type SuggestionProvider interface {
	Suggest(ctx context.Context, recipientName, intent string) ([]string, error)
}

// TemplateSuggestions is a static catalogue keyed by intent. Unknown intents
// fall back to casual.
type TemplateSuggestions struct{}

var suggestionTemplates = map[string][]string{
	IntentLongTerm: {
		"Hi {name}, I noticed we share an interest in puzzles. What's your favorite type to solve?",
		"Hello {name}! I'm looking for something meaningful. What are you hoping to find here?",
		"{name}, your profile really caught my attention. I'd love to get to know you better.",
	},
	IntentCasual: {
		"Hey {name}! How's your day going? Any fun plans for the weekend?",
		"{name}, your profile made me smile. What do you enjoy doing for fun?",
		"Hi there {name}! No pressure, just wanted to say hello and see where things go.",
	},
	IntentFriendship: {
		"Hey {name}, I'm new in town and looking to make some friends. Would you be up for showing me around?",
		"Hi {name}! I noticed we both enjoy similar activities. Would be great to hang out sometime!",
		"{name}, looking to expand my social circle. What kind of activities do you enjoy with friends?",
	},
	IntentOneNight: {
		"Hey {name}, I'm only in town for the night. Want to meet up for a drink?",
		"{name}, you're incredibly attractive. Any interest in meeting up tonight?",
		"Direct and honest - I'm looking for something casual. If that's not your thing, no worries!",
	},
}

// Suggest renders the templates for intent.
func (TemplateSuggestions) Suggest(_ context.Context, recipientName, intent string) ([]string, error) {
	templates, ok := suggestionTemplates[strings.ToLower(strings.TrimSpace(intent))]
	if !ok {
		templates = suggestionTemplates[IntentCasual]
	}

	out := make([]string, len(templates))
	for i, tmpl := range templates {
		out[i] = strings.ReplaceAll(tmpl, "{name}", recipientName)
	}
	return out, nil
}
