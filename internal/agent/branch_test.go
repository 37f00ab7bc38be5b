package agent

import (
	"testing"

	"github.com/haasonsaas/conclave/pkg/models"
)

func TestNewBranchManager_StartsWithPrimaryBranch(t *testing.T) {
	m := NewBranchManager("session-1")
	if m.Primary() == nil || !m.Primary().IsPrimary {
		t.Fatalf("Primary() = %+v, want an IsPrimary branch", m.Primary())
	}
	if m.Primary().ID == "" {
		t.Error("primary branch should be assigned an ID")
	}
	got, ok := m.Branch(m.Primary().ID)
	if !ok || got != m.Primary() {
		t.Error("Branch(primary.ID) should return the tracked primary branch")
	}
}

func TestBranchManager_Fork_RecordsParentage(t *testing.T) {
	m := NewBranchManager("session-1")
	parent := NewContext()
	parent.AppendHistory(HistoryEntry{Role: models.RoleUser, Content: "hi"})

	fork, branch := m.Fork(parent, nil, "explore-alt")
	if branch.ParentBranchID == nil || *branch.ParentBranchID != m.Primary().ID {
		t.Fatalf("ParentBranchID = %v, want %s", branch.ParentBranchID, m.Primary().ID)
	}
	if branch.BranchPoint != int64(parent.HistorySize()) {
		t.Errorf("BranchPoint = %d, want %d", branch.BranchPoint, parent.HistorySize())
	}
	if branch.IsRoot() {
		t.Error("a forked branch should not be root")
	}
	if fork == parent {
		t.Fatal("Fork should return an independent Context copy")
	}

	fork.AppendHistory(HistoryEntry{Role: models.RoleAssistant, Content: "exploring"})
	if parent.HistorySize() != 1 {
		t.Errorf("parent.HistorySize() = %d, want 1 (fork must not mutate parent)", parent.HistorySize())
	}

	if _, ok := m.Branch(branch.ID); !ok {
		t.Error("forked branch should be tracked by the manager")
	}
}

func TestBranchManager_Merge_ContinueAppendsNewEntriesOnly(t *testing.T) {
	m := NewBranchManager("session-1")
	target := NewContext()
	target.AppendHistory(HistoryEntry{Role: models.RoleUser, Content: "hi"})

	fork, branch := m.Fork(target, nil, "explore-alt")
	fork.AppendHistory(HistoryEntry{Role: models.RoleAssistant, Content: "alt reply"})

	merge, err := m.Merge(target, fork, m.Primary(), branch, models.MergeStrategyContinue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merge.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", merge.MessageCount)
	}
	if merge.TargetBranchID != m.Primary().ID {
		t.Errorf("TargetBranchID = %q, want %q", merge.TargetBranchID, m.Primary().ID)
	}
	if target.HistorySize() != 2 {
		t.Fatalf("target.HistorySize() = %d, want 2", target.HistorySize())
	}
	if branch.Status != models.BranchStatusMerged || branch.MergedAt == nil {
		t.Errorf("branch = %+v, want Status=merged and MergedAt set", branch)
	}
}

func TestBranchManager_Merge_ReplaceOverwritesTargetHistory(t *testing.T) {
	m := NewBranchManager("session-1")
	target := NewContext()
	target.AppendHistory(HistoryEntry{Role: models.RoleUser, Content: "original"})

	fork, branch := m.Fork(target, nil, "rewrite")
	fork.AppendHistory(HistoryEntry{Role: models.RoleAssistant, Content: "rewritten"})

	_, err := m.Merge(target, fork, m.Primary(), branch, models.MergeStrategyReplace)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	history := target.History()
	if len(history) != 2 || history[1].Content != "rewritten" {
		t.Fatalf("target history after replace = %+v", history)
	}
}

func TestBranchManager_Merge_RejectsPrimaryOrAlreadyMergedBranch(t *testing.T) {
	m := NewBranchManager("session-1")
	target := NewContext()
	fork := target.Copy()

	if _, err := m.Merge(target, fork, nil, m.Primary(), models.MergeStrategyContinue); err == nil {
		t.Error("merging the primary branch should be rejected")
	}

	_, branch := m.Fork(target, nil, "once")
	if _, err := m.Merge(target, fork, m.Primary(), branch, models.MergeStrategyContinue); err != nil {
		t.Fatalf("first merge should succeed: %v", err)
	}
	if _, err := m.Merge(target, fork, m.Primary(), branch, models.MergeStrategyContinue); err == nil {
		t.Error("merging an already-merged branch again should be rejected")
	}
}

func TestBranchManager_Archive(t *testing.T) {
	m := NewBranchManager("session-1")
	target := NewContext()
	_, branch := m.Fork(target, nil, "scratch")

	if err := m.Archive(branch); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if branch.Status != models.BranchStatusArchived {
		t.Errorf("Status = %s, want archived", branch.Status)
	}
	if err := m.Archive(branch); err == nil {
		t.Error("archiving a non-active branch again should be rejected")
	}

	if err := m.Archive(m.Primary()); err == nil {
		t.Error("archiving the primary branch should be rejected")
	}
}
