package timeline

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshot is an immutable view of one project's branches and nodes. All
// resolution and layout algorithms read a snapshot without mutating it; the
// owning Store replaces the whole snapshot atomically on refresh.
type Snapshot struct {
	ProjectID string

	branches     map[string]*Branch
	nodes        map[string]*Node
	branchNodes  map[string][]*Node   // per branch, sorted (created_at, position, id)
	childrenOf   map[string][]*Branch // parent branch id -> children, sorted (created_at, id)
	ordered      []*Branch            // all branches, sorted (depth, created_at, id)
	rootBranchID string
}

// BuildSnapshot indexes the raw branch and node listings into a Snapshot.
// Ordering is fixed by explicit sort keys so two snapshots built from the
// same data are identical regardless of input order.
func BuildSnapshot(projectID string, branches []*Branch, nodes []*Node) (*Snapshot, error) {
	snap := &Snapshot{
		ProjectID:   projectID,
		branches:    make(map[string]*Branch, len(branches)),
		nodes:       make(map[string]*Node, len(nodes)),
		branchNodes: make(map[string][]*Node),
		childrenOf:  make(map[string][]*Branch),
	}

	for _, b := range branches {
		if _, dup := snap.branches[b.ID]; dup {
			return nil, fmt.Errorf("timeline: duplicate branch id %s", b.ID)
		}
		snap.branches[b.ID] = b
		if b.IsRoot() {
			if snap.rootBranchID != "" {
				return nil, fmt.Errorf("timeline: project %s has multiple root branches", projectID)
			}
			snap.rootBranchID = b.ID
		} else {
			snap.childrenOf[*b.ParentID] = append(snap.childrenOf[*b.ParentID], b)
		}
	}

	for _, n := range nodes {
		if _, dup := snap.nodes[n.ID]; dup {
			return nil, fmt.Errorf("timeline: duplicate node id %s", n.ID)
		}
		snap.nodes[n.ID] = n
		snap.branchNodes[n.BranchID] = append(snap.branchNodes[n.BranchID], n)
	}

	for _, list := range snap.branchNodes {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			if list[i].Position != list[j].Position {
				return list[i].Position < list[j].Position
			}
			return list[i].ID < list[j].ID
		})
	}
	for _, list := range snap.childrenOf {
		sortBranches(list)
	}

	snap.ordered = make([]*Branch, 0, len(branches))
	snap.ordered = append(snap.ordered, branches...)
	sort.Slice(snap.ordered, func(i, j int) bool {
		if snap.ordered[i].Depth != snap.ordered[j].Depth {
			return snap.ordered[i].Depth < snap.ordered[j].Depth
		}
		if !snap.ordered[i].CreatedAt.Equal(snap.ordered[j].CreatedAt) {
			return snap.ordered[i].CreatedAt.Before(snap.ordered[j].CreatedAt)
		}
		return snap.ordered[i].ID < snap.ordered[j].ID
	})

	return snap, nil
}

func sortBranches(list []*Branch) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// RootBranchID returns the root branch id, or "" for an empty project.
func (s *Snapshot) RootBranchID() string {
	return s.rootBranchID
}

// Branch returns the branch by id, or nil.
func (s *Snapshot) Branch(id string) *Branch {
	return s.branches[id]
}

// Node returns the node by id, or nil.
func (s *Snapshot) Node(id string) *Node {
	return s.nodes[id]
}

// Branches returns every branch sorted by (depth, created_at, id).
func (s *Snapshot) Branches() []*Branch {
	return s.ordered
}

// Children returns the direct child branches of the given branch, sorted by
// (created_at, id). The returned slice must not be mutated.
func (s *Snapshot) Children(branchID string) []*Branch {
	return s.childrenOf[branchID]
}

// BranchNodes returns every node of a branch, all kinds included, sorted by
// (created_at, position, id).
func (s *Snapshot) BranchNodes(branchID string) []*Node {
	return s.branchNodes[branchID]
}

// OwnSequence returns a branch's displayable own nodes: its sorted nodes
// with the synthetic branch_root excluded.
func (s *Snapshot) OwnSequence(branchID string) []*Node {
	all := s.branchNodes[branchID]
	own := make([]*Node, 0, len(all))
	for _, n := range all {
		if n.Kind == NodeKindBranchRoot {
			continue
		}
		own = append(own, n)
	}
	return own
}

// SiblingOrdinal returns a branch's ordinal position among branches sharing
// its parent, in creation order, or 0 for the root branch.
func (s *Snapshot) SiblingOrdinal(b *Branch) int {
	if b.IsRoot() {
		return 0
	}
	for i, sib := range s.childrenOf[*b.ParentID] {
		if sib.ID == b.ID {
			return i
		}
	}
	return 0
}

// HasChildNodes reports whether any node lists the given node as parent.
func (s *Snapshot) HasChildNodes(nodeID string) bool {
	for _, n := range s.nodes {
		if n.ParentID != nil && *n.ParentID == nodeID {
			return true
		}
	}
	return false
}

// HasForkedBranches reports whether any branch forks from the given node.
func (s *Snapshot) HasForkedBranches(nodeID string) bool {
	for _, b := range s.branches {
		if b.BranchPointNodeID != nil && *b.BranchPointNodeID == nodeID {
			return true
		}
	}
	return false
}

// Store holds the current snapshot for one project. The snapshot is replaced
// wholesale on refresh (single writer) and read without locking the refresh
// path (multi reader); readers always see a complete, consistent view.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace atomically installs a new snapshot.
func (s *Store) Replace(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

// Current returns the installed snapshot, or nil before the first refresh.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
