package vision

import (
	"testing"
)

func TestHungarianAssign_Empty(t *testing.T) {
	result := hungarianAssign(nil)
	if result != nil {
		t.Errorf("expected nil for empty cost matrix, got %v", result)
	}
}

func TestHungarianAssign_NoColumns(t *testing.T) {
	cost := [][]float64{{}, {}}
	result := hungarianAssign(cost)
	if len(result) != 2 || result[0] != -1 || result[1] != -1 {
		t.Errorf("expected all rows unassigned, got %v", result)
	}
}

func TestHungarianAssign_SingleElement(t *testing.T) {
	cost := [][]float64{{5.0}}
	result := hungarianAssign(cost)
	if len(result) != 1 || result[0] != 0 {
		t.Errorf("expected [0], got %v", result)
	}
}

func TestHungarianAssign_SquareOptimal(t *testing.T) {
	// Classic 3x3 assignment problem:
	//   [1 2 3]     Optimal: row0→col0 (1), row1→col1 (4), row2→col2 (5) = 10
	//   [4 4 6]     NOT: row0→col0 (1), row1→col2 (6), row2→col1 (8) = 15
	//   [9 8 5]
	cost := [][]float64{
		{1, 2, 3},
		{4, 4, 6},
		{9, 8, 5},
	}
	result := hungarianAssign(cost)

	if len(result) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(result))
	}

	totalCost := 0.0
	for i, j := range result {
		if j < 0 {
			t.Errorf("row %d unassigned", i)
			continue
		}
		totalCost += cost[i][j]
	}

	if totalCost != 10.0 {
		t.Errorf("expected optimal cost 10, got %v (assignments: %v)", totalCost, result)
	}
}

func TestHungarianAssign_Forbidden(t *testing.T) {
	// Row 1 has no reachable column (all forbidden).
	cost := [][]float64{
		{1, 2},
		{hungarianInf, hungarianInf},
	}
	result := hungarianAssign(cost)

	if len(result) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(result))
	}
	if result[0] < 0 {
		t.Errorf("row 0 should be assigned, got %d", result[0])
	}
	if result[1] != -1 {
		t.Errorf("row 1 should be unassigned (-1), got %d", result[1])
	}
}

func TestHungarianAssign_MoreRowsThanCols(t *testing.T) {
	// 3 rows, 2 cols → one row must go unassigned.
	cost := [][]float64{
		{1, 10},
		{10, 1},
		{5, 5},
	}
	result := hungarianAssign(cost)

	assigned := map[int]bool{}
	unassigned := 0
	for i, j := range result {
		if j < 0 {
			unassigned++
			continue
		}
		if assigned[j] {
			t.Errorf("column %d assigned twice (row %d)", j, i)
		}
		assigned[j] = true
	}
	if unassigned != 1 {
		t.Errorf("expected exactly 1 unassigned row, got %d (%v)", unassigned, result)
	}
	if result[0] != 0 || result[1] != 1 {
		t.Errorf("expected cheap diagonal assignment, got %v", result)
	}
}

func TestHungarianAssign_MoreColsThanRows(t *testing.T) {
	// 2 rows, 3 cols → each row picks its cheapest column, one column
	// stays uncovered.
	cost := [][]float64{
		{7, 1, 9},
		{2, 8, 9},
	}
	result := hungarianAssign(cost)

	if len(result) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(result))
	}
	if result[0] != 1 || result[1] != 0 {
		t.Errorf("expected [1 0], got %v", result)
	}
}

func TestHungarianAssign_ForbiddenSentinelStillAssignable(t *testing.T) {
	// forbiddenCost entries are finite: the solver may pick them when a
	// row has nothing else, and the gating filter rejects them after the
	// solve. This mirrors the tracker's cost construction.
	cost := [][]float64{
		{forbiddenCost},
	}
	result := hungarianAssign(cost)
	if result[0] != 0 {
		t.Errorf("finite sentinel should still be assignable, got %v", result)
	}
}
