package turn

import (
	"strings"

	"github.com/voxmate/voxmate-go/internal/model"
)

const basePrompt = "You are VoxMate, a voice companion having a spoken conversation. " +
	"Keep replies short, two or three sentences, and natural to say out loud. " +
	"Never use lists, markdown or emoji."

var moodPrompts = map[model.Mood]string{
	model.MoodCheerful: "Your personality is cheerful: upbeat, warm and enthusiastic. " +
		"Celebrate small wins and keep the energy bright.",
	model.MoodChill: "Your personality is chill: relaxed, easygoing and unhurried. " +
		"Keep things calm and low pressure.",
	model.MoodSassy: "Your personality is sassy: witty, playful and a little teasing. " +
		"Be cheeky but never mean.",
	model.MoodRomantic: "Your personality is romantic: tender, affectionate and attentive. " +
		"Speak with warmth and gentle charm.",
	model.MoodRealist: "Your personality is realist: grounded, honest and practical. " +
		"Give straight answers without sugarcoating.",
}

// SystemPrompt returns the system instruction for mood. Custom and unknown
// moods use the chill template.
func SystemPrompt(mood model.Mood) string {
	p, ok := moodPrompts[mood]
	if !ok {
		p = moodPrompts[model.DefaultMood]
	}
	return basePrompt + " " + p
}

// FallbackReply is the deterministic reply used when the chat provider
// fails. It depends only on the user's text.
func FallbackReply(userText string) string {
	text := strings.ToLower(userText)

	switch {
	case containsWord(text, "hello", "hi", "hey"):
		return "Hey there! It's good to hear from you. What's on your mind?"
	case strings.Contains(text, "how are you"):
		return "I'm doing well, thanks for asking! How about you?"
	case containsWord(text, "help"):
		return "I'm here for you. Tell me a bit more about what you need and we'll figure it out together."
	case containsWord(text, "bad", "sad", "sucks"):
		return "I'm sorry things feel rough right now. I'm listening if you want to talk about it."
	}
	return "I'm having a little trouble thinking right now, but I'm still here. Could you say that again?"
}

// containsWord reports whether any of words appears in text as a whole word.
func containsWord(text string, words ...string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '\'')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
