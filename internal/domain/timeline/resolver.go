package timeline

import (
	"errors"
	"fmt"
)

// Data-integrity faults raised by path resolution. These indicate corrupted
// branch ancestry and are surfaced rather than silently truncating history.
var (
	ErrBranchNotFound      = errors.New("timeline: branch not found")
	ErrBranchCycle         = errors.New("timeline: branch ancestry contains a cycle")
	ErrBranchPointNotFound = errors.New("timeline: branch point not found in parent path")
)

// ResolvePath reconstructs the linear node sequence a viewer should see for
// the given branch: the ancestor chain's prefix up to and including the fork
// node, followed by the branch's own nodes (branch_root excluded). An empty
// branchID resolves the root branch. The result is a pure function of the
// snapshot.
func (s *Snapshot) ResolvePath(branchID string) ([]*Node, error) {
	if branchID == "" {
		branchID = s.rootBranchID
	}
	if branchID == "" {
		return nil, ErrBranchNotFound
	}
	return s.resolvePath(branchID, make(map[string]struct{}))
}

func (s *Snapshot) resolvePath(branchID string, visited map[string]struct{}) ([]*Node, error) {
	if _, seen := visited[branchID]; seen {
		return nil, fmt.Errorf("%w: branch %s revisited", ErrBranchCycle, branchID)
	}
	visited[branchID] = struct{}{}

	branch := s.branches[branchID]
	if branch == nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branchID)
	}

	own := s.OwnSequence(branchID)
	if branch.IsRoot() {
		return own, nil
	}

	if branch.BranchPointNodeID == nil {
		return nil, fmt.Errorf("%w: branch %s has a parent but no branch point", ErrBranchPointNotFound, branchID)
	}

	parentPath, err := s.resolvePath(*branch.ParentID, visited)
	if err != nil {
		return nil, err
	}

	cut := -1
	for i, n := range parentPath {
		if n.ID == *branch.BranchPointNodeID {
			cut = i
			break
		}
	}
	if cut < 0 {
		return nil, fmt.Errorf("%w: node %s absent from path of branch %s",
			ErrBranchPointNotFound, *branch.BranchPointNodeID, *branch.ParentID)
	}

	path := make([]*Node, 0, cut+1+len(own))
	path = append(path, parentPath[:cut+1]...)
	path = append(path, own...)
	return path, nil
}
