package grid

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Classifier turns a floor plan raster into cell kinds.
type Classifier interface {
	Classify(img image.Image) ([][]Kind, error)
}

// ThresholdClassifier downsamples the image and classifies cells by colour:
// dark pixels are walls, green-dominant pixels are exits, everything else is
// walkable floor. Without green pixels exits are placed on the border ring.
type ThresholdClassifier struct {
	MaxCells     int     // long edge of the output grid
	ObstacleLuma uint8   // luma below this is an obstacle
	ExitSpacing  float64 // minimum distance between inferred border exits
}

// NewThresholdClassifier returns a classifier with the default settings.
func NewThresholdClassifier() *ThresholdClassifier {
	return &ThresholdClassifier{MaxCells: 64, ObstacleLuma: 128, ExitSpacing: 20}
}

// Classify implements Classifier.
func (t *ThresholdClassifier) Classify(img image.Image) ([][]Kind, error) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrInvalidFloorPlan, b.Dx(), b.Dy())
	}
	w, h := scaledSize(b.Dx(), b.Dy(), t.MaxCells)
	src := img
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}
	origin := src.Bounds().Min

	cells := make([][]Kind, h)
	exits := 0
	for y := 0; y < h; y++ {
		cells[y] = make([]Kind, w)
		for x := 0; x < w; x++ {
			k := t.classifyPixel(src.At(origin.X+x, origin.Y+y))
			if k == Exit {
				exits++
			}
			cells[y][x] = k
		}
	}
	if exits == 0 {
		markBorderExits(cells, t.ExitSpacing)
	}
	return cells, nil
}

func (t *ThresholdClassifier) classifyPixel(c color.Color) Kind {
	r, g, bl, _ := c.RGBA()
	r8, g8, b8 := int(r>>8), int(g>>8), int(bl>>8)
	if g8 > 128 && g8 > r8+40 && g8 > b8+40 {
		return Exit
	}
	if color.GrayModel.Convert(c).(color.Gray).Y < t.ObstacleLuma {
		return Obstacle
	}
	return Walkable
}

func scaledSize(w, h, maxCells int) (int, int) {
	if maxCells < 2 {
		maxCells = 2
	}
	long := w
	if h > long {
		long = h
	}
	if long <= maxCells {
		return w, h
	}
	scale := float64(maxCells) / float64(long)
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	if sw < 2 {
		sw = 2
	}
	if sh < 2 {
		sh = 2
	}
	return sw, sh
}

// markBorderExits places exits on walkable cells of the outer ring, falling
// back to the ring just inside it, keeping exits at least spacing apart.
func markBorderExits(cells [][]Kind, spacing float64) {
	rows := len(cells)
	if rows == 0 {
		return
	}
	cols := len(cells[0])
	for ring := 0; ring < 2; ring++ {
		if rows-1-ring <= ring || cols-1-ring <= ring {
			return
		}
		var cand []Coord
		for c := ring; c < cols-ring; c++ {
			cand = append(cand, Coord{ring, c}, Coord{rows - 1 - ring, c})
		}
		for r := ring + 1; r < rows-1-ring; r++ {
			cand = append(cand, Coord{r, ring}, Coord{r, cols - 1 - ring})
		}
		var picked []Coord
		for _, c := range cand {
			if cells[c.Row][c.Col] != Walkable {
				continue
			}
			if farFromAll(c, picked, spacing) {
				picked = append(picked, c)
			}
		}
		if len(picked) == 0 {
			continue
		}
		for _, c := range picked {
			cells[c.Row][c.Col] = Exit
		}
		return
	}
}

func farFromAll(c Coord, picked []Coord, spacing float64) bool {
	for _, p := range picked {
		dr, dc := float64(c.Row-p.Row), float64(c.Col-p.Col)
		if math.Hypot(dr, dc) <= spacing {
			return false
		}
	}
	return true
}

// DecodePlan reads an uploaded floor plan. Text plans are parsed directly,
// images go through cls.
func DecodePlan(name string, data []byte, cls Classifier) (*Plan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidFloorPlan)
	}
	if isTextPlan(name, data) {
		return ParseText(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrInvalidFloorPlan, err)
	}
	if cls == nil {
		cls = NewThresholdClassifier()
	}
	cells, err := cls.Classify(img)
	if err != nil {
		return nil, err
	}
	return &Plan{Cells: cells}, nil
}

func isTextPlan(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".plan":
		return true
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "text/plain")
}
