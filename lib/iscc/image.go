package iscc

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// Side length of the grayscale thumbnail a Content-ID-Image is computed from.
const ImageSize = 32

const dctBlock = 8

// ContentIDImage computes the Content-ID-Image from a 32x32 grayscale
// thumbnail. Each bit tells whether a low-frequency DCT coefficient lies
// above the block median.
func ContentIDImage(thumb image.Image) (string, error) {
	b := thumb.Bounds()
	if b.Dx() != ImageSize || b.Dy() != ImageSize {
		return "", fmt.Errorf("iscc: content image must be %dx%d, got %dx%d", ImageSize, ImageSize, b.Dx(), b.Dy())
	}

	pixels := make([][]float64, ImageSize)
	for y := 0; y < ImageSize; y++ {
		row := make([]float64, ImageSize)
		for x := 0; x < ImageSize; x++ {
			g := color.GrayModel.Convert(thumb.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			row[x] = float64(g.Y)
		}
		pixels[y] = row
	}

	// Rows, then columns
	rows := make([][]float64, ImageSize)
	for y, row := range pixels {
		rows[y] = dct(row)
	}
	coeffs := make([][]float64, ImageSize)
	for x := 0; x < ImageSize; x++ {
		col := make([]float64, ImageSize)
		for y := 0; y < ImageSize; y++ {
			col[y] = rows[y][x]
		}
		coeffs[x] = dct(col)
	}

	// coeffs is column-major; read the low-frequency block row by row
	block := make([]float64, 0, dctBlock*dctBlock)
	for y := 0; y < dctBlock; y++ {
		for x := 0; x < dctBlock; x++ {
			block = append(block, coeffs[x][y])
		}
	}

	med := median(block)
	var body uint64
	for _, v := range block {
		body <<= 1
		if v > med {
			body |= 1
		}
	}

	return Component{Header: HeaderContentImage, Body: body}.String(), nil
}

// Unnormalized DCT-II.
func dct(v []float64) []float64 {
	n := len(v)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, x := range v {
			sum += x * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n)))
		}
		out[k] = sum
	}
	return out
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
