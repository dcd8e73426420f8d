package game

import "testing"

func TestParseDifficulty(t *testing.T) {
	cases := map[string]Difficulty{
		"easy":   DifficultyEasy,
		"Medium": DifficultyMedium,
		"normal": DifficultyMedium,
		" hard ": DifficultyHard,
	}
	for in, want := range cases {
		got, err := ParseDifficulty(in)
		if err != nil || got != want {
			t.Errorf("ParseDifficulty(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseDifficulty("brutal"); err == nil {
		t.Errorf("expected error for unknown difficulty")
	}
}

func TestDefaultDifficultiesMonotonic(t *testing.T) {
	table := DefaultDifficulties()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	if !(table.Scale(DifficultyEasy) < table.Scale(DifficultyMedium) && table.Scale(DifficultyMedium) < table.Scale(DifficultyHard)) {
		t.Fatalf("scales not increasing: %v", table)
	}
	if table.Scale("unknown") != 1 {
		t.Fatalf("unknown difficulty should scale by 1")
	}
}

func TestParseDifficultyTable(t *testing.T) {
	table, err := ParseDifficultyTable("easy=0.25, normal=1, hard=2")
	if err != nil {
		t.Fatal(err)
	}
	if table.Scale(DifficultyEasy) != 0.25 || table.Scale(DifficultyMedium) != 1 || table.Scale(DifficultyHard) != 2 {
		t.Fatalf("unexpected table %v", table)
	}
	if table.String() != "easy=0.25,hard=2,medium=1" {
		t.Fatalf("String() = %q", table.String())
	}

	bad := []string{
		"easy=1,medium=1,hard=2", // not strictly increasing
		"easy=0.5,hard=1",        // medium missing
		"easy=x,medium=1,hard=2",
		"easy,medium=1,hard=2",
		"easy=-1,medium=1,hard=2",
	}
	for _, s := range bad {
		if _, err := ParseDifficultyTable(s); err == nil {
			t.Errorf("ParseDifficultyTable(%q): expected error", s)
		}
	}
}
