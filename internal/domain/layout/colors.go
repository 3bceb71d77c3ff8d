package layout

import "tramway-server/internal/domain/timeline"

// Palette is the fixed ordered list of branch hues. The root branch always
// takes the first entry; non-root branches never do, so the main line is
// visually distinct. Wrap-around for projects with more siblings than hues
// is intentional.
var Palette = []string{
	"#3b82f6", // blue, reserved for the root branch
	"#ef4444", // red
	"#22c55e", // green
	"#f97316", // orange
	"#a855f7", // purple
	"#06b6d4", // cyan
	"#ec4899", // pink
	"#eab308", // yellow
}

// ColorFor returns the display color for a branch. A persisted color is
// sticky and always wins; otherwise the index derives from depth and sibling
// position: root -> Palette[0], non-root -> 1 + siblingOrdinal mod
// (len(Palette)-1), where the ordinal counts same-parent branches in
// creation order.
func ColorFor(b *timeline.Branch, snap *timeline.Snapshot) string {
	if b.Color != "" {
		return b.Color
	}
	if b.IsRoot() {
		return Palette[0]
	}
	idx := 1 + snap.SiblingOrdinal(b)%(len(Palette)-1)
	return Palette[idx]
}
