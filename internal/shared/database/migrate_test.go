package database

import "testing"

func TestMigrationsEmbedded(t *testing.T) {
	versions, err := Migrations()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(versions) == 0 || versions[0] != "001_coc_schema" {
		t.Errorf("Expected 001_coc_schema first, got %v", versions)
	}
}

func TestSplitApplied(t *testing.T) {
	applied, pending, _ := splitApplied(
		[]string{"001_a", "002_b", "003_c"},
		map[string]bool{"001_a": true, "003_c": true},
	)
	if len(applied) != 2 || len(pending) != 1 || pending[0] != "002_b" {
		t.Errorf("Unexpected split applied=%v pending=%v", applied, pending)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	versions, err := Migrations()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(versions) < 2 || versions[1] != "002_audit" {
		t.Errorf("Expected 002_audit second, got %v", versions)
	}
}
