package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/tnunamak/claudebar/internal/display"
)

const iconSize = 64

var tierColors = map[display.Tier]color.RGBA{
	display.Neutral: {R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff},
	display.Green:   {R: 0x34, G: 0xc7, B: 0x59, A: 0xff},
	display.Yellow:  {R: 0xff, G: 0xcc, B: 0x00, A: 0xff},
	display.Red:     {R: 0xff, G: 0x3b, B: 0x30, A: 0xff},
}

// icons holds one pre-rendered PNG per tier.
var icons = renderIcons()

func renderIcons() map[display.Tier][]byte {
	out := make(map[display.Tier][]byte, len(tierColors))
	for tier, c := range tierColors {
		out[tier] = circlePNG(c, iconSize)
	}
	return out
}

// circlePNG draws a filled circle of color c on a transparent square.
func circlePNG(c color.RGBA, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size)/2 - 1
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
