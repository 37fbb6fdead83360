package language

// Language is a selectable conversation language.
type Language struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Well-known language values.
const (
	English = "English"
	Hindi   = "Hindi"
	Marathi = "Marathi"
	Telugu  = "Telugu"
	Kannada = "Kannada"

	// Roman is the value of the transliteration sentinel.
	Roman = "Hindi in Roman script"
)

var (
	languages = []Language{
		{Value: English, Label: "English"},
		{Value: Hindi, Label: "Hindi"},
		{Value: Marathi, Label: "Marathi"},
		{Value: Telugu, Label: "Telugu"},
		{Value: Kannada, Label: "Kannada"},
	}

	transliterationTarget = Language{Value: Roman, Label: "Hindi (Roman)"}

	// Targets always rendered in Roman script, even outside transliteration mode.
	romanOnly = map[string]bool{
		Kannada: true,
		Telugu:  true,
	}
)

// List returns the ordered registry table.
func List() []Language {
	return append([]Language(nil), languages...)
}

// TransliterationTarget returns the synthetic target used in transliteration mode.
func TransliterationTarget() Language {
	return transliterationTarget
}

// Find looks up a language by value. The transliteration sentinel is included.
func Find(value string) (Language, bool) {
	if value == transliterationTarget.Value {
		return transliterationTarget, true
	}
	for _, item := range languages {
		if item.Value == value {
			return item, true
		}
	}
	return Language{}, false
}

// IsSentinel reports whether value names the transliteration target.
func IsSentinel(value string) bool {
	return value == transliterationTarget.Value
}

// RequiresTransliteration reports whether messages into target are always romanized.
func RequiresTransliteration(target string) bool {
	return romanOnly[target]
}

// FirstOtherThan returns the first registry language different from value,
// falling back to Hindi.
func FirstOtherThan(value string) string {
	for _, item := range languages {
		if item.Value != value {
			return item.Value
		}
	}
	return Hindi
}

// TargetOptions lists the targets selectable for source. In transliteration
// mode only the sentinel is offered.
func TargetOptions(source string, transliteration bool) []Language {
	if transliteration {
		return []Language{transliterationTarget}
	}

	options := make([]Language, 0, len(languages))
	for _, item := range languages {
		if item.Value != source {
			options = append(options, item)
		}
	}
	return options
}
