package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/conclave/pkg/models"
)

// BranchManager tracks conversation branches for a single session, letting
// an orchestrator fork a Context to explore an alternative path (e.g. a
// network topology's peers each reasoning over their own copy of the
// transcript) and later merge the result back into the branch it forked
// from.
//
// BranchManager itself does not hold conversation state: a *Context remains
// the source of truth for history, and BranchManager only tracks the
// models.Branch bookkeeping (parentage, divergence point, status) alongside
// it.
type BranchManager struct {
	sessionID string
	primary   *models.Branch
	branches  map[string]*models.Branch
}

// NewBranchManager creates a manager with a fresh primary branch for the
// given session.
func NewBranchManager(sessionID string) *BranchManager {
	primary := models.NewPrimaryBranch(sessionID)
	primary.ID = uuid.NewString()
	return &BranchManager{
		sessionID: sessionID,
		primary:   primary,
		branches:  map[string]*models.Branch{primary.ID: primary},
	}
}

// Primary returns the session's primary branch record.
func (m *BranchManager) Primary() *models.Branch { return m.primary }

// Branch looks up a tracked branch by ID.
func (m *BranchManager) Branch(id string) (*models.Branch, bool) {
	b, ok := m.branches[id]
	return b, ok
}

// Fork records a new branch diverging from parent at its current history
// length and returns an independent Context copy for the caller to run the
// fork on. The parent branch is never mutated by forking.
func (m *BranchManager) Fork(parent *Context, parentBranch *models.Branch, name string) (*Context, *models.Branch) {
	if parentBranch == nil {
		parentBranch = m.primary
	}
	branch := models.NewBranch(m.sessionID, name)
	branch.ID = uuid.NewString()
	parentID := parentBranch.ID
	branch.ParentBranchID = &parentID
	branch.BranchPoint = int64(parent.HistorySize())
	m.branches[branch.ID] = branch
	return parent.Copy(), branch
}

// Merge folds source's history since its BranchPoint into target per
// strategy, marks the branch merged, and returns the merge record.
//
// MergeStrategyReplace discards target's post-divergence history in favor
// of source's; MergeStrategyContinue and MergeStrategyInterleave both
// append source's new entries after target's own (HistoryEntry carries no
// timestamp to interleave by, so Interleave degrades to Continue's
// append-in-order behavior).
func (m *BranchManager) Merge(target, source *Context, targetBranch, branch *models.Branch, strategy models.MergeStrategy) (*models.BranchMerge, error) {
	if !branch.CanMerge() {
		return nil, fmt.Errorf("agent: branch %q cannot be merged (status=%s, primary=%v)", branch.ID, branch.Status, branch.IsPrimary)
	}

	sourceHistory := source.History()
	start := branch.BranchPoint
	if start > int64(len(sourceHistory)) {
		start = int64(len(sourceHistory))
	}
	newEntries := sourceHistory[start:]

	insertAt := int64(target.HistorySize())
	switch strategy {
	case models.MergeStrategyReplace:
		target.Clear()
		for _, e := range sourceHistory {
			target.AppendHistory(e)
		}
		insertAt = 0
	default: // MergeStrategyContinue, MergeStrategyInterleave
		for _, e := range newEntries {
			target.AppendHistory(e)
		}
	}

	now := time.Now()
	branch.Status = models.BranchStatusMerged
	branch.UpdatedAt = now
	branch.MergedAt = &now

	merge := &models.BranchMerge{
		ID:                   uuid.NewString(),
		SourceBranchID:       branch.ID,
		Strategy:             strategy,
		SourceSequenceStart:  start,
		SourceSequenceEnd:    int64(len(sourceHistory)),
		TargetSequenceInsert: insertAt,
		MessageCount:         len(newEntries),
		MergedAt:             now,
	}
	if targetBranch != nil {
		merge.TargetBranchID = targetBranch.ID
	}
	return merge, nil
}

// Archive marks a non-primary branch archived, making it ineligible for
// further forking or merging.
func (m *BranchManager) Archive(branch *models.Branch) error {
	if !branch.CanArchive() {
		return fmt.Errorf("agent: branch %q cannot be archived (status=%s, primary=%v)", branch.ID, branch.Status, branch.IsPrimary)
	}
	branch.Status = models.BranchStatusArchived
	branch.UpdatedAt = time.Now()
	return nil
}
