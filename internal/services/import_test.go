package services

import (
	"fmt"
	"testing"

	"luckydraw/internal/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string { n++; return fmt.Sprintf("p%d", n) }
}

func TestParseParticipants(t *testing.T) {
	t.Run("Test two lines with default department", func(t *testing.T) {
		got, skipped := ParseParticipants("Alice,001,Eng\nBob,002", sequentialIDs())
		if skipped != 0 {
			t.Errorf("Expected no skipped lines, got %d", skipped)
		}
		want := []models.Participant{
			{ID: "p1", Name: "Alice", Code: "001", Department: "Eng"},
			{ID: "p2", Name: "Bob", Code: "002", Department: models.DefaultDepartment},
		}
		if len(got) != len(want) {
			t.Fatalf("Expected %d participants, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Participant %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	})

	t.Run("Test mixed delimiters", func(t *testing.T) {
		got, _ := ParseParticipants("张三，A01，研发\r\nLi\tA02\tSales\nWang  A03 ,, HR", sequentialIDs())
		if len(got) != 3 {
			t.Fatalf("Expected 3 participants, got %d", len(got))
		}
		if got[0].Name != "张三" || got[0].Code != "A01" || got[0].Department != "研发" {
			t.Errorf("Unexpected full-width parse %+v", got[0])
		}
		if got[1].Department != "Sales" {
			t.Errorf("Expected tab separated department, got %q", got[1].Department)
		}
		if got[2].Code != "A03" || got[2].Department != "HR" {
			t.Errorf("Expected runs of delimiters to collapse, got %+v", got[2])
		}
	})

	t.Run("Test malformed lines are skipped", func(t *testing.T) {
		got, skipped := ParseParticipants("Alice\n\n   \n,001\nBob,002", sequentialIDs())
		if len(got) != 1 || got[0].Name != "Bob" {
			t.Errorf("Expected only Bob, got %+v", got)
		}
		if skipped != 2 {
			t.Errorf("Expected 2 skipped lines, got %d", skipped)
		}
	})
}
