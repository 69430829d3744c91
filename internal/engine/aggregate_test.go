package engine

import (
	"testing"
	"time"

	"github.com/openroam/tripgraph/internal/domain"
)

func TestGroupByLocation_InheritsFromAncestors(t *testing.T) {
	buckets := GroupByLocation([]domain.ExpenseNode{
		{ID: "oslo", Location: "Oslo", Expense: &domain.Expense{Amount: "100"}, Active: true},
		{ID: "tram", ParentID: "oslo", Expense: &domain.Expense{Amount: "4", Quantity: "2"}, Active: true},
		{ID: "bergen", Location: "Bergen", Expense: &domain.Expense{Amount: "50"}, Active: true},
		{ID: "nowhere", Expense: &domain.Expense{Amount: "9"}, Active: true},
	})

	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (unlocated nodes omitted)", len(buckets))
	}
	// Keys are sorted.
	if buckets[0].Key != "Bergen" || buckets[1].Key != "Oslo" {
		t.Fatalf("bucket order: %s, %s", buckets[0].Key, buckets[1].Key)
	}

	oslo := buckets[1]
	if len(oslo.Members) != 2 {
		t.Fatalf("Oslo members = %d, want parent plus inheriting child", len(oslo.Members))
	}
	// Own costs, not subtree rollups: 100 + 4×2.
	if oslo.Total != 108 {
		t.Fatalf("Oslo total = %v, want 108", oslo.Total)
	}
}

func TestGroupByLocation_SkipsVisuallyInactive(t *testing.T) {
	buckets := GroupByLocation([]domain.ExpenseNode{
		{ID: "root", Location: "Oslo", Expense: &domain.Expense{Amount: "10"}, Active: false},
		{ID: "child", ParentID: "root", Expense: &domain.Expense{Amount: "5"}, Active: true},
	})
	if len(buckets) != 0 {
		t.Fatalf("inactive branch still reported: %+v", buckets)
	}
}

func TestGroupByDate_BucketsByDayAscending(t *testing.T) {
	day1 := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	day1Later := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	buckets := GroupByDate([]domain.ExpenseNode{
		{ID: "late", Datetime: &day2, Expense: &domain.Expense{Amount: "30"}, Active: true},
		{ID: "breakfast", Datetime: &day1, Expense: &domain.Expense{Amount: "12"}, Active: true},
		{ID: "dinner", Datetime: &day1Later, Expense: &domain.Expense{Amount: "40"}, Active: true},
	})

	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[0].Key != "2025-06-02" || buckets[1].Key != "2025-06-03" {
		t.Fatalf("bucket order: %s, %s", buckets[0].Key, buckets[1].Key)
	}
	if buckets[0].Total != 52 {
		t.Fatalf("same-day amounts not merged: %v", buckets[0].Total)
	}
}

func TestGroupByDate_InheritsFromAncestors(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	buckets := GroupByDate([]domain.ExpenseNode{
		{ID: "root", Datetime: &day, Active: true},
		{ID: "child", ParentID: "root", Expense: &domain.Expense{Amount: "15"}, Active: true},
		{ID: "undated", Expense: &domain.Expense{Amount: "99"}, Active: true},
	})

	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	if buckets[0].Key != "2025-06-02" || buckets[0].Total != 15 {
		t.Fatalf("unexpected bucket: %+v", buckets[0])
	}
	if len(buckets[0].Members) != 2 {
		t.Fatalf("child did not inherit the ancestor date: %+v", buckets[0].Members)
	}
}
