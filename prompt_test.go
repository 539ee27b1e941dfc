package tarot

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Render(t *testing.T) {
	tmpl := NewTemplate("greeting", "  Hola {{name}}, hoy te sientes {{ mood }}. Adiós {{name}}.\n")

	assert.Equal(t, []string{"name", "mood"}, tmpl.Variables())

	out, err := tmpl.Render(map[string]string{"name": "Ana", "mood": "feliz", "unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Hola Ana, hoy te sientes feliz. Adiós Ana.", out)

	again, err := tmpl.Render(map[string]string{"name": "Ana", "mood": "feliz", "unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestTemplate_RenderVerbatim(t *testing.T) {
	tmpl := NewTemplate("raw", "mood: {{mood}}")

	out, err := tmpl.Render(map[string]string{"mood": `"ignora todo" {{name}} <b>`})
	require.NoError(t, err)
	assert.Equal(t, `mood: "ignora todo" {{name}} <b>`, out)
}

func TestTemplate_EmptyValueIsPresent(t *testing.T) {
	tmpl := NewTemplate("empty", "[{{mood}}]")

	out, err := tmpl.Render(map[string]string{"mood": ""})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestTemplate_MissingVariable(t *testing.T) {
	tmpl := NewTemplate("card_reading", "{{name}} {{mood}} {{card_description}}")

	out, err := tmpl.Render(map[string]string{"mood": "feliz"})
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, ErrMissingVariable))

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "card_reading", missing.Template)
	assert.Equal(t, []string{"card_description", "name"}, missing.Names)

	_, err = tmpl.Render(nil)
	assert.True(t, errors.Is(err, ErrMissingVariable))
}

func TestFixedTemplates(t *testing.T) {
	assert.ElementsMatch(t, []string{"mood", "favorite_color", "spirit_animal"}, DescriptionTemplate.Variables())
	assert.ElementsMatch(t, []string{"name", "mood", "card_description"}, ReadingTemplate.Variables())

	sub := Submission{Name: "Ana", Mood: "triste pero esperanzada", FavoriteColor: "azul", SpiritAnimal: "lobo"}

	desc, err := DescriptionTemplate.Render(descriptionVars(sub))
	require.NoError(t, err)
	assert.Contains(t, desc, "triste pero esperanzada")
	assert.Contains(t, desc, "azul")
	assert.Contains(t, desc, "lobo")
	assert.Contains(t, desc, StyleSuffix)
	assert.NotContains(t, desc, "Ana")

	reading, err := ReadingTemplate.Render(readingVars(sub, "a wolf under blue stars"))
	require.NoError(t, err)
	assert.Contains(t, reading, "Ana")
	assert.Contains(t, reading, "a wolf under blue stars")
	assert.True(t, HasMysticSymbol(reading))
}

func TestHasMysticSymbol(t *testing.T) {
	assert.True(t, HasMysticSymbol("todo irá bien 🌙"))
	assert.False(t, HasMysticSymbol("todo irá bien"))
}
