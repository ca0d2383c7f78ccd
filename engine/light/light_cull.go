package light

// TileSize is the edge in pixels of a Forward+ screen tile. Pass contexts carry the tile grid
// of their target so renderers that bin lights per tile agree on its shape.
const TileSize = 16

// TileCounts returns the tile grid covering a width x height target, rounding partial tiles
// up. An empty target has no tiles.
//
// Parameters:
//   - width: target width in pixels
//   - height: target height in pixels
//
// Returns:
//   - x: tile columns
//   - y: tile rows
func TileCounts(width, height uint32) (x, y uint32) {
	return (width + TileSize - 1) / TileSize, (height + TileSize - 1) / TileSize
}
