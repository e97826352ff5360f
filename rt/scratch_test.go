package rt

import (
	"testing"

	"vkgltfscene/scene"
)

func TestPlanBatchesRespectsBudget(t *testing.T) {
	reqs := []ScratchRequest{
		{PrimitiveIndex: 0, ScratchSize: 300},
		{PrimitiveIndex: 1, ScratchSize: 300},
		{PrimitiveIndex: 2, ScratchSize: 300},
		{PrimitiveIndex: 3, ScratchSize: 100},
	}
	batches := PlanBatches(reqs, 600)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d: %v", len(batches), batches)
	}
	for _, b := range batches {
		if sz := TotalScratch(reqs, b); sz > 600 {
			t.Fatalf("batch %v exceeds budget: %d", b, sz)
		}
	}
	// Input order is preserved across batches.
	var flat []int
	for _, b := range batches {
		flat = append(flat, b...)
	}
	for i, idx := range flat {
		if idx != i {
			t.Fatalf("batches reordered requests: %v", flat)
		}
	}
}

func TestPlanBatchesOversizedRequestBuildsAlone(t *testing.T) {
	reqs := []ScratchRequest{
		{PrimitiveIndex: 0, ScratchSize: 50},
		{PrimitiveIndex: 1, ScratchSize: 5000},
		{PrimitiveIndex: 2, ScratchSize: 50},
	}
	batches := PlanBatches(reqs, 100)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %v", batches)
	}
	if len(batches[1]) != 1 || batches[1][0] != 1 {
		t.Fatalf("oversized request must build alone, got %v", batches[1])
	}
}

func TestPlanBatchesEmpty(t *testing.T) {
	if got := PlanBatches(nil, 100); got != nil {
		t.Fatalf("expected nil for no requests, got %v", got)
	}
}

func TestShouldRebuildTLASOnVisibilityChange(t *testing.T) {
	if ShouldRebuildTLAS(5, 5) {
		t.Fatalf("unchanged visible count must refit, not rebuild")
	}
	if !ShouldRebuildTLAS(5, 4) {
		t.Fatalf("visible count change must force a rebuild")
	}
}

func TestCountVisible(t *testing.T) {
	nodes := []scene.RenderNode{
		{Visible: true}, {Visible: false}, {Visible: true},
	}
	if got := CountVisible(nodes); got != 2 {
		t.Fatalf("CountVisible = %d, want 2", got)
	}
}
