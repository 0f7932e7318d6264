package chat

import (
	"context"

	"github.com/voxmate/voxmate-go/internal/model"
)

var mockReplies = map[model.Mood]string{
	model.MoodCheerful: "Oh, I love that! Tell me more, this is so much fun!",
	model.MoodChill:    "Cool, I hear you. Take your time, no rush.",
	model.MoodSassy:    "Well, well. Go on then, I'm listening.",
	model.MoodRomantic: "Every word from you makes my day a little brighter.",
	model.MoodRealist:  "Fair enough. Let's look at what's actually going on.",
}

// Mock answers with a canned line in the prompt's mood.
type Mock struct{}

func (Mock) Name() string { return "mock" }

func (Mock) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reply, ok := mockReplies[p.Mood]; ok {
		return reply, nil
	}
	return mockReplies[model.MoodChill], nil
}
