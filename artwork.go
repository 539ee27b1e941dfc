package tarot

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	nightTop    = color.RGBA{R: 0x1b, G: 0x10, B: 0x3a, A: 0xff}
	nightBottom = color.RGBA{R: 0x05, G: 0x03, B: 0x12, A: 0xff}
	glowColor   = color.RGBA{R: 0xbc, G: 0x96, B: 0xff, A: 0xff}
	goldColor   = color.RGBA{R: 0xf4, G: 0xd6, B: 0x8c, A: 0xff}
)

// wrapText breaks text into lines no wider than maxWidth, splitting on
// spaces and falling back to runes for words longer than a line.
func wrapText(text string, maxWidth int, face font.Face) []string {
	var lines []string
	limit := fixed.I(maxWidth)
	spaceWidth := font.MeasureString(face, " ")

	for _, paragraph := range strings.Split(text, "\n") {
		var line string
		var lineWidth fixed.Int26_6
		for _, word := range strings.Fields(paragraph) {
			wordWidth := font.MeasureString(face, word)
			if wordWidth > limit {
				for _, r := range word {
					rWidth := font.MeasureString(face, string(r))
					if lineWidth+rWidth > limit {
						lines = append(lines, line)
						line = ""
						lineWidth = 0
					}
					line += string(r)
					lineWidth += rWidth
				}
				continue
			}

			if line != "" && lineWidth+spaceWidth+wordWidth > limit {
				// start new line
				lines = append(lines, line)
				line = ""
				lineWidth = 0
			}
			if line != "" {
				line += " "
				lineWidth += spaceWidth
			}
			line += word
			lineWidth += wordWidth
		}
		lines = append(lines, line)
	}

	return lines
}

// DrawStringWrapped word-wraps the specified string to the given max width
// and then draws it at the specified anchor point using the given line
// spacing and text alignment. It returns the y below the last line.
func DrawStringWrapped(dc *gg.Context, ff font.Face, s string, x, y, ax, ay, width, lineSpacing float64, align gg.Align) float64 {
	lines := wrapText(s, int(width), ff)

	// sync h formula with MeasureMultilineString
	h := float64(len(lines)) * dc.FontHeight() * lineSpacing
	h -= (lineSpacing - 1) * dc.FontHeight()

	x -= ax * width
	y -= ay * h
	switch align {
	case gg.AlignLeft:
		ax = 0
	case gg.AlignCenter:
		ax = 0.5
		x += width / 2
	case gg.AlignRight:
		ax = 1
		x += width
	}
	ay = 1
	for _, line := range lines {
		dc.DrawStringAnchored(line, x, y, ax, ay)
		y += dc.FontHeight() * lineSpacing
	}

	return y
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

// RenderCover draws the card back shown next to the form: a night sky, a
// glowing frame, a crescent, the title and a wrapped tagline.
func RenderCover(a Assets, title, tagline string) image.Image {
	w, h := defaultCardWidth, defaultCardHeight
	dc := gg.NewContext(w, h)

	sky := gg.NewLinearGradient(0, 0, 0, float64(h))
	sky.AddColorStop(0, nightTop)
	sky.AddColorStop(1, nightBottom)
	dc.SetFillStyle(sky)
	dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), 30)
	dc.Fill()

	// Fixed seed keeps the star field identical across restarts.
	rng := rand.New(rand.NewSource(22))
	for i := 0; i < 140; i++ {
		x, y := rng.Float64()*float64(w), rng.Float64()*float64(h)
		r := 0.4 + rng.Float64()*1.4
		dc.SetRGBA(1, 1, 1, 0.35+rng.Float64()*0.65)
		dc.DrawCircle(x, y, r)
		dc.Fill()
	}

	cx, cy := float64(w)/2, float64(h)*0.38
	dc.SetColor(goldColor)
	dc.DrawCircle(cx, cy, 70)
	dc.Fill()
	dc.SetColor(nightTop)
	dc.DrawCircle(cx+28, cy-12, 62)
	dc.Fill()

	dc.SetColor(goldColor)
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 4
		dc.DrawLine(cx+95*math.Cos(angle), cy+95*math.Sin(angle), cx+115*math.Cos(angle), cy+115*math.Sin(angle))
	}
	dc.SetLineWidth(2)
	dc.Stroke()

	glow := gg.NewContext(w, h)
	glow.SetColor(glowColor)
	glow.SetLineWidth(10)
	glow.DrawRoundedRectangle(18, 18, float64(w)-36, float64(h)-36, 24)
	glow.Stroke()
	dc.DrawImage(imaging.Blur(glow.Image(), 6), 0, 0)

	dc.SetColor(goldColor)
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(18, 18, float64(w)-36, float64(h)-36, 24)
	dc.Stroke()

	titleFace := face(a.BoldFont, 30)
	dc.SetFontFace(titleFace)
	dc.SetColor(color.White)
	y := DrawStringWrapped(dc, titleFace, title, cx, float64(h)*0.62, 0.5, 0, float64(w)-80, 1.2, gg.AlignCenter)

	bodyFace := face(a.Font, 17)
	dc.SetFontFace(bodyFace)
	dc.SetColor(glowColor)
	DrawStringWrapped(dc, bodyFace, tagline, cx, y+18, 0.5, 0, float64(w)-90, 1.4, gg.AlignCenter)

	return dc.Image()
}
