package tts

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
// Use ResolveElevenLabsVoice to look up a voice by name or pass through raw IDs.
var ElevenLabsVoices = map[string]string{
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
	"aria":      "9BWtsMINqrJLrRacOk9x", // American female, expressive
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"domi":      "AZnzlk1XvdvUeBnXmlld", // American female, strong
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// DefaultElevenLabsVoice is the default voice preset.
const DefaultElevenLabsVoice = "rachel"

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}

// Google voices suited to short coaching cues.
const (
	GoogleVoiceCoach = "en-US-Neural2-F"
	GoogleVoiceMale  = "en-US-Neural2-D"
	GoogleVoiceIndia = "en-IN-Neural2-A"
)
