package orchestration

import (
	"fmt"
	"slices"

	"github.com/kingbootoshi/Stream-Buddy/core/llms"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

// sessionTools exposes avatar controls to the model so it can emote on its
// own during a reply.
func sessionTools(state *session.State) []llms.Tool {
	return []llms.Tool{
		llms.NewTool("set_mood", "Change the avatar's mood. Use it when the tone of the conversation shifts",
			func(parameters struct {
				Mood string `json:"mood" jsonschema:"enum=neutral,enum=happy,enum=angry"`
			}) (string, error) {
				if !slices.Contains([]string{"neutral", "happy", "angry"}, parameters.Mood) {
					return "", fmt.Errorf("unknown mood: %s", parameters.Mood)
				}
				state.SetMood(parameters.Mood)
				return "Mood updated", nil
			}),
		llms.NewTool("set_hat", "Put on one of the avatar's hats, or take the hat off with an empty value",
			func(parameters struct {
				Hat string `json:"hat" jsonschema:"enum=hat1,enum=hat2,enum=hat3,enum="`
			}) (string, error) {
				if !slices.Contains([]string{"hat1", "hat2", "hat3", ""}, parameters.Hat) {
					return "", fmt.Errorf("unknown hat: %s", parameters.Hat)
				}
				state.SetHat(parameters.Hat)
				return "Hat updated", nil
			}),
		llms.NewTool("listening_control", "Turn microphone listening on or off, might be referred to as 'muting'",
			func(parameters struct {
				IsListening bool `json:"is_listening"`
			}) (string, error) {
				state.SetListening(parameters.IsListening)
				return "Success. Respond with a very short phrase", nil
			}),
	}
}
