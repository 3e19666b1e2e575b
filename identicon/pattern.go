package identicon

// GridSize is the number of cells per side of a glyph
const GridSize = 5

// Grid is a row-major occupancy grid: Grid[y][x]
type Grid [GridSize][GridSize]bool

// PatternFor reads 15 bits of h into the three left columns and mirrors them:
// column 3 copies column 1 and column 4 copies column 0.
func PatternFor(h uint32) Grid {
	var g Grid
	for y := 0; y < GridSize; y++ {
		for x := 0; x < 3; x++ {
			bit := uint(y*3 + x)
			on := (h>>bit)&1 == 1
			g[y][x] = on
			g[y][GridSize-1-x] = on
		}
	}
	return g
}

// Count returns the number of on cells
func (g Grid) Count() int {
	n := 0
	for y := range g {
		for x := range g[y] {
			if g[y][x] {
				n++
			}
		}
	}
	return n
}
