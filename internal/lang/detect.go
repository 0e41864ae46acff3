package lang

import "strings"

// Language identifies one of the two supported analysis languages.
type Language string

const (
	Spanish Language = "es"
	English Language = "en"
)

// Default is what ambiguous or empty input resolves to.
const Default = Spanish

func Supported() []Language {
	return []Language{Spanish, English}
}

// Parse maps a config/API hint onto the supported set.
func Parse(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "en-us", "en-gb", "english":
		return English
	default:
		return Default
	}
}

var spanishStopwords = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "de": true, "del": true,
	"que": true, "en": true, "por": true, "con": true, "para": true, "una": true,
	"un": true, "es": true, "se": true, "su": true, "al": true, "como": true,
	"más": true, "este": true, "esta": true, "pero": true, "sus": true, "le": true,
	"ya": true, "entre": true, "cuando": true, "sin": true, "sobre": true, "también": true,
}

var englishStopwords = map[string]bool{
	"the": true, "of": true, "and": true, "to": true, "in": true, "is": true,
	"that": true, "it": true, "for": true, "was": true, "on": true, "are": true,
	"with": true, "as": true, "at": true, "be": true, "this": true, "have": true,
	"from": true, "or": true, "by": true, "not": true, "but": true, "what": true,
	"all": true, "were": true, "when": true, "there": true, "can": true, "an": true,
}

// Detect picks the dominant language of the text, constrained to the
// supported set. Ties and token-free input fall back to the default.
func Detect(text string) Language {
	var es, en int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:¿?¡!\"'()[]{}")
		if spanishStopwords[word] {
			es++
		}
		if englishStopwords[word] {
			en++
		}
	}
	if en > es {
		return English
	}
	return Spanish
}
