package graphics

// cellSize is the tile-alignment granularity damage rectangles are rounded
// to, per spec: "in multiples of 4 pixels on each side."
const cellSize = 4

// DamageRect is one axis-aligned, tile-aligned rectangle of changed pixels
// within a display update's (x, y, w, h) region.
type DamageRect struct {
	X, Y, W, H int
}

// FindDifferentRects compares old against newData (both w*h*BytesPerPixel,
// tightly packed, describing the rectangle at (x, y, w, h) on screen) and
// returns the set of tile-aligned, non-overlapping sub-rectangles whose
// contents differ. The equivalent of a dedicated find_different_rects_sub<4>:
// cells are compared 4 pixels at a time, then merged into runs along each
// row, then runs are merged vertically across rows sharing the same
// horizontal span.
func FindDifferentRects(old, newData []byte, x, y, w, h int) []DamageRect {
	if len(old) != len(newData) || len(old) != w*h*BytesPerPixel {
		return []DamageRect{{X: x, Y: y, W: w, H: h}}
	}

	cellsX := (w + cellSize - 1) / cellSize
	cellsY := (h + cellSize - 1) / cellSize

	diff := make([][]bool, cellsY)
	for cy := range diff {
		diff[cy] = make([]bool, cellsX)
		for cx := 0; cx < cellsX; cx++ {
			diff[cy][cx] = cellDiffers(old, newData, w, h, cx, cy)
		}
	}

	var pending []*DamageRect
	var out []DamageRect

	for cy := 0; cy < cellsY; cy++ {
		runs := rowRuns(diff[cy], cellsX)

		matched := make([]bool, len(pending))
		var nextPending []*DamageRect

		for _, run := range runs {
			extended := false
			for i, p := range pending {
				if matched[i] {
					continue
				}
				if p.X == run[0]*cellSize && p.X+p.W == clampX(run[1]*cellSize, w) {
					p.H += cellSize
					nextPending = append(nextPending, p)
					matched[i] = true
					extended = true
					break
				}
			}
			if !extended {
				nextPending = append(nextPending, &DamageRect{
					X: run[0] * cellSize,
					Y: y + cy*cellSize,
					W: clampX(run[1]*cellSize, w) - run[0]*cellSize,
					H: cellSize,
				})
			}
		}

		for i, p := range pending {
			if !matched[i] {
				out = append(out, finalizeRect(*p, x, y, h))
			}
		}

		pending = nextPending
	}

	for _, p := range pending {
		out = append(out, finalizeRect(*p, x, y, h))
	}

	return out
}

func finalizeRect(r DamageRect, x, y, h int) DamageRect {
	r.X += x
	if r.Y+r.H > y+h {
		r.H = y + h - r.Y
	}
	return r
}

func clampX(v, w int) int {
	if v > w {
		return w
	}
	return v
}

// rowRuns merges horizontally adjacent true cells in row into closed runs
// [startCell, endCell).
func rowRuns(row []bool, cellsX int) [][2]int {
	var runs [][2]int
	start := -1
	for cx := 0; cx < cellsX; cx++ {
		if row[cx] {
			if start == -1 {
				start = cx
			}
		} else if start != -1 {
			runs = append(runs, [2]int{start, cx})
			start = -1
		}
	}
	if start != -1 {
		runs = append(runs, [2]int{start, cellsX})
	}
	return runs
}

func cellDiffers(old, newData []byte, w, h, cx, cy int) bool {
	rowBytes := w * BytesPerPixel

	x0 := cx * cellSize
	y0 := cy * cellSize
	x1 := x0 + cellSize
	if x1 > w {
		x1 = w
	}
	y1 := y0 + cellSize
	if y1 > h {
		y1 = h
	}

	for row := y0; row < y1; row++ {
		off := row*rowBytes + x0*BytesPerPixel
		end := row*rowBytes + x1*BytesPerPixel
		for i := off; i < end; i++ {
			if old[i] != newData[i] {
				return true
			}
		}
	}

	return false
}
