package tarot

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Card proportions follow the 2:3 aspect ratio requested from the image model.
const (
	defaultCardWidth  = 400
	defaultCardHeight = 600
)

// Submission is one completed form. It is written once and never changed.
type Submission struct {
	Name          string `json:"name" validate:"required"`
	BirthDate     string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	FavoriteColor string `json:"favorite_color" validate:"required"`
	SpiritAnimal  string `json:"spirit_animal" validate:"required"`
	Mood          string `json:"mood" validate:"required"`
	Email         string `json:"email" validate:"required"`
}

func (s Submission) String() string {
	return fmt.Sprintf("%s (%s, %s)", s.Name, s.FavoriteColor, s.SpiritAnimal)
}

// CardDescription is the scene handed to the image model.
type CardDescription string

// CardReading is the uplifting paragraph shown next to the card, in markdown.
type CardReading string

// CardImage holds the URLs returned by the image model, in upstream order.
type CardImage struct {
	URLs []string `json:"urls"`
}

// URL returns the first image; callers only ever show one.
func (c CardImage) URL() string {
	if len(c.URLs) == 0 {
		return ""
	}
	return c.URLs[0]
}

// Result is the pair delivered to the caller once both downstream calls succeed.
type Result struct {
	ID          string          `json:"id"`
	Submission  Submission      `json:"-"`
	Description CardDescription `json:"description"`
	Reading     CardReading     `json:"reading"`
	Image       CardImage       `json:"image"`
	ImageURL    string          `json:"image_url"`
	Elapsed     time.Duration   `json:"elapsed"`
}

type Assets struct {
	Font     *truetype.Font
	BoldFont *truetype.Font
}

var (
	initAssetsOnce sync.Once
	assets         Assets
)

func mustParseFont(data []byte) *truetype.Font {
	f, err := truetype.Parse(data)
	if err != nil {
		panic(err)
	}

	return f
}

func initFonts() {
	assets.Font = mustParseFont(goregular.TTF)
	assets.BoldFont = mustParseFont(gobold.TTF)
}

func GetDefaultAssets() Assets {
	initAssetsOnce.Do(func() {
		initFonts()
	})

	return assets
}
