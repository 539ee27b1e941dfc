package tarot

import (
	"regexp"
	"sort"
	"strings"
)

// StyleSuffix conditions the flux tarot model; every card description ends with it.
const StyleSuffix = "in the style of TOK a trtcrd tarot style."

const descriptionLead = "Write a short description of a tarot card."

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Template is a prompt with {{name}} placeholders. Values are inserted verbatim.
type Template struct {
	name string
	text string
	vars []string
}

func NewTemplate(name, text string) *Template {
	text = strings.TrimSpace(text)
	seen := map[string]bool{}
	var vars []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}

	return &Template{name: name, text: text, vars: vars}
}

func (t *Template) Name() string { return t.name }

// Variables returns the placeholder names in order of first appearance.
func (t *Template) Variables() []string {
	return append([]string(nil), t.vars...)
}

// Render fills every placeholder from vars. A placeholder without an entry
// fails the whole render; an entry holding "" is a valid value.
func (t *Template) Render(vars map[string]string) (string, error) {
	var missing []string
	for _, name := range t.vars {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariableError{Template: t.name, Names: missing}
	}

	out := placeholderRe.ReplaceAllStringFunc(t.text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[name]
	})

	return out, nil
}

var (
	DescriptionTemplate = NewTemplate("card_description", descriptionLead+`
The description is the prompt for an image model.

The scene follows the mood the user reports today (it may be written in Spanish; translate it to English): {{mood}}.
If the mood is negative, paint an uplifting, hopeful scene that contrasts with it. If the mood is positive, let the scene carry that same energy.
Weave in the mystical power of the user's favorite color (translate it to English): {{favorite_color}}, and the strength of their spirit animal (translate it to English): {{spirit_animal}}.

Add exactly one Spanish word in quotation marks that captures the user's personality, preferably in its feminine form, and state explicitly that the word is written at the bottom of the card.

Go straight into the scene; never begin with "Create an image".
Keep it to two lines at most and describe only concrete, visible things, no abstract ideas.

The description MUST end with "`+StyleSuffix+`"
`)

	ReadingTemplate = NewTemplate("card_reading", `
Con la información siguiente escribe, en formato markdown, una breve introducción a la carta que el Tarot Espacial eligió para {{name}}.
El mensaje debe ser optimista y luminoso y tomar en cuenta cómo se siente hoy: {{mood}}.
Si su ánimo es bajo, ofrécele un contraste esperanzador; si es alto, acompaña y amplifica esa energía.
Incluye una descripción corta de la carta que salió: {{card_description}}

No más de un párrafo, inspirador, que transmita confianza en el futuro.
Adórnalo con emojis místicos (🔮 ✨ 🌙 ⭐ 🪐).
`)
)

// MysticSymbols are the ornaments the reading prompt asks for.
var MysticSymbols = []string{"🔮", "✨", "🌙", "⭐", "🪐", "🌟", "💫", "☀️", "🃏"}

// HasMysticSymbol reports whether text carries at least one mystical ornament.
func HasMysticSymbol(text string) bool {
	for _, s := range MysticSymbols {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func descriptionVars(sub Submission) map[string]string {
	return map[string]string{
		"mood":           sub.Mood,
		"favorite_color": sub.FavoriteColor,
		"spirit_animal":  sub.SpiritAnimal,
	}
}

func readingVars(sub Submission, desc CardDescription) map[string]string {
	return map[string]string{
		"name":             sub.Name,
		"mood":             sub.Mood,
		"card_description": string(desc),
	}
}
