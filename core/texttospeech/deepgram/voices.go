package deepgram

import (
	"slices"
	"strings"
)

// Voice is a Deepgram Aura voice model.
type Voice string

const (
	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"
	VoiceHelena    Voice = "aura-2-helena-en"
	VoiceApollo    Voice = "aura-2-apollo-en"
	VoiceArcas     Voice = "aura-2-arcas-en"
	VoiceAries     Voice = "aura-2-aries-en"
	VoiceDraco     Voice = "aura-2-draco-en"
	VoicePandora   Voice = "aura-2-pandora-en"
	VoiceHyperion  Voice = "aura-2-hyperion-en"
	VoiceCeleste   Voice = "aura-2-celeste-es"
	VoiceNestor    Voice = "aura-2-nestor-es"

	DefaultVoice = VoiceThalia
)

func AvailableVoices() []Voice {
	return []Voice{
		VoiceThalia, VoiceAndromeda, VoiceHelena, VoiceApollo, VoiceArcas,
		VoiceAries, VoiceDraco, VoicePandora, VoiceHyperion, VoiceCeleste,
		VoiceNestor,
	}
}

// voicesByLanguage lists voices whose accent matches a language tag.
var voicesByLanguage = map[string]Voice{
	"en-GB": VoiceDraco,
	"en-AU": VoiceHyperion,
	"es":    VoiceCeleste,
}

// resolveVoice picks the voice for a request: an explicitly named voice wins,
// then a voice matching the language, then fallback.
func resolveVoice(name, language string, fallback Voice) Voice {
	if voice := Voice(name); slices.Contains(AvailableVoices(), voice) {
		return voice
	}
	if voice, ok := voicesByLanguage[language]; ok {
		return voice
	}
	if base, _, found := strings.Cut(language, "-"); found {
		if voice, ok := voicesByLanguage[base]; ok {
			return voice
		}
	}
	return fallback
}
