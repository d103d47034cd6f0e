// Package captcha draws text challenges for backends that cannot source the
// portal's own challenge image.
package captcha

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/big"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Alphabet excludes glyphs that are easy to confuse (0/O, 1/I/l).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

const (
	DefaultLength = 6
	// scale is applied to the 7x13 bitmap face before noise is added
	scale = 4
)

var ErrEmptyCode = errors.New("captcha: empty code")

// NewCode returns a random code of n characters drawn from Alphabet.
func NewCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	limit := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("captcha: random: %w", err)
		}
		out[i] = Alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Render draws code into a PNG.
func Render(code string) ([]byte, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}
	face := basicfont.Face7x13
	advance := face.Advance
	pad := 4

	small := image.NewRGBA(image.Rect(0, 0, len(code)*(advance+2)+2*pad, face.Height+2*pad))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.RGBA{0xf4, 0xf1, 0xe8, 0xff}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.RGBA{0x1d, 0x2b, 0x53, 0xff}),
		Face: face,
	}
	for i, r := range code {
		// alternate the baseline so glyphs do not sit on one line
		y := pad + face.Ascent + (i%2)*2 - 1
		d.Dot = fixed.P(pad+i*(advance+2), y)
		d.DrawString(string(r))
	}

	b := small.Bounds()
	scaled := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), small, b, draw.Src, nil)

	if err := addNoise(scaled); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("captcha: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// addNoise strikes a few random lines across the image.
func addNoise(img *image.RGBA) error {
	b := img.Bounds()
	ink := color.RGBA{0x7e, 0x25, 0x53, 0xff}
	for line := 0; line < 4; line++ {
		y0, err := randInt(b.Dy())
		if err != nil {
			return err
		}
		y1, err := randInt(b.Dy())
		if err != nil {
			return err
		}
		w := b.Dx()
		for x := 0; x < w; x++ {
			y := y0 + (y1-y0)*x/w
			img.SetRGBA(x, y, ink)
			if y+1 < b.Dy() {
				img.SetRGBA(x, y+1, ink)
			}
		}
	}
	return nil
}

func randInt(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("captcha: random: %w", err)
	}
	return int(v.Int64()), nil
}

// Generate returns a fresh code and its rendered image.
func Generate(n int) (code string, img []byte, err error) {
	code, err = NewCode(n)
	if err != nil {
		return "", nil, err
	}
	img, err = Render(code)
	if err != nil {
		return "", nil, err
	}
	return code, img, nil
}

// DataURL encodes img as a data: URL, sniffing its MIME type.
func DataURL(img []byte) string {
	mime := http.DetectContentType(img)
	if len(img) == 0 {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}
