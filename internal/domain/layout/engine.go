package layout

import (
	"math"

	"tramway-server/internal/domain/timeline"
)

// Geometry is one branch's computed subway-map placement: the persisted
// layout record plus derived values that are cheap to recompute and therefore
// never stored.
type Geometry struct {
	timeline.BranchLayout

	// BaseY is the vertical offset of the branch's first visible content,
	// derived from the fork node's position within the parent branch.
	BaseY float64 `json:"base_y"`
	Color string  `json:"color"`
}

// Engine assigns subway-map coordinates to every branch of a snapshot. The
// computation is pure and idempotent: it depends only on explicit sort keys
// (depth, creation time, id), so re-running it over an unchanged tree yields
// identical output.
type Engine struct {
	// BaseOffsetX is the horizontal distance between a depth-1 branch and
	// its parent line.
	BaseOffsetX float64
	// SiblingOffsetX separates same-parent branches that resolved to the
	// same direction so they never share an x coordinate.
	SiblingOffsetX float64
	// DepthDecay shrinks the base offset per extra depth level so deep
	// trees stay on screen.
	DepthDecay float64
	// NodeSpacingY is the vertical increment between consecutive nodes.
	NodeSpacingY float64
}

// NewEngine returns an engine with the default spacing constants.
func NewEngine() *Engine {
	return &Engine{
		BaseOffsetX:    320,
		SiblingOffsetX: 80,
		DepthDecay:     0.7,
		NodeSpacingY:   120,
	}
}

// RootDirection is the canonical direction of the root branch.
const RootDirection = timeline.DirectionRight

// Compute lays out every branch in the snapshot. Branches are visited in
// (depth, created_at, id) order, so a parent's placement is always settled
// before its children's. A branch whose parent or fork node is missing from
// the snapshot gets a deterministic fallback placement rather than an error.
func (e *Engine) Compute(snap *timeline.Snapshot) map[string]Geometry {
	out := make(map[string]Geometry, len(snap.Branches()))

	for _, b := range snap.Branches() {
		if b.IsRoot() {
			out[b.ID] = Geometry{
				BranchLayout: timeline.BranchLayout{X: 0, Direction: RootDirection, SiblingIndex: 0},
				BaseY:        0,
				Color:        ColorFor(b, snap),
			}
			continue
		}
		out[b.ID] = e.placeBranch(b, snap, out)
	}

	return out
}

func (e *Engine) placeBranch(b *timeline.Branch, snap *timeline.Snapshot, laid map[string]Geometry) Geometry {
	siblings := snap.Children(*b.ParentID)
	ordinal := snap.SiblingOrdinal(b)
	dir := resolveDirection(b, ordinal)

	// Count earlier siblings that resolved to the same side; they push this
	// branch further out so no two share an x.
	sameSide := 0
	for i := 0; i < ordinal && i < len(siblings); i++ {
		if resolveDirection(siblings[i], i) == dir {
			sameSide++
		}
	}

	depth := b.Depth
	if depth < 1 {
		depth = 1
	}
	offset := e.BaseOffsetX*math.Pow(e.DepthDecay, float64(depth-1)) +
		float64(sameSide)*e.SiblingOffsetX

	parentGeo, ok := laid[*b.ParentID]
	if !ok {
		// Corrupted ancestry: anchor to the center line so the branch still
		// renders somewhere deterministic.
		parentGeo = Geometry{}
	}

	geo := Geometry{
		BranchLayout: timeline.BranchLayout{
			X:            parentGeo.X + dir.Sign()*offset,
			Direction:    dir,
			SiblingIndex: ordinal,
		},
		BaseY: e.branchBaseY(b, snap, parentGeo),
		Color: ColorFor(b, snap),
	}
	return geo
}

// resolveDirection applies the uniform policy: an explicit creation-time
// hint wins; otherwise siblings alternate by ordinal, first right then left,
// fanning the tree out symmetrically.
func resolveDirection(b *timeline.Branch, ordinal int) timeline.Direction {
	if b.DirectionHint != nil && b.DirectionHint.Valid() {
		return *b.DirectionHint
	}
	if ordinal%2 == 0 {
		return timeline.DirectionRight
	}
	return timeline.DirectionLeft
}

// branchBaseY derives the vertical offset of the branch's first visible
// content from the fork node's position in the parent branch: forks earlier
// in the parent sit higher on the map.
func (e *Engine) branchBaseY(b *timeline.Branch, snap *timeline.Snapshot, parentGeo Geometry) float64 {
	if b.BranchPointNodeID == nil {
		return parentGeo.BaseY
	}
	fork := snap.Node(*b.BranchPointNodeID)
	if fork == nil {
		return parentGeo.BaseY
	}
	return parentGeo.BaseY + float64(fork.Position)*e.NodeSpacingY + e.NodeSpacingY
}

// NodeY returns the vertical coordinate of the i-th node of a branch whose
// first visible content sits at baseY.
func (e *Engine) NodeY(baseY float64, index int) float64 {
	return baseY + float64(index)*e.NodeSpacingY
}
