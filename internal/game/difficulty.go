package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Difficulty selects how strongly device tilt and pushes act on the ball.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// difficultyOrder lists levels from easiest to hardest.
var difficultyOrder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty accepts the level names case-insensitively. "normal" is an
// alias for medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium", "normal":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// DifficultyTable maps each level to the factor applied to base gravity and
// to impulse magnitudes.
type DifficultyTable map[Difficulty]float64

// DefaultDifficulties are the scales the game ships with.
func DefaultDifficulties() DifficultyTable {
	return DifficultyTable{
		DifficultyEasy:   0.5,
		DifficultyMedium: 1.0,
		DifficultyHard:   1.25,
	}
}

// Scale returns the factor for d, or 1 if d is not in the table.
func (t DifficultyTable) Scale(d Difficulty) float64 {
	if s, ok := t[d]; ok {
		return s
	}
	return 1
}

// Validate requires every level to be present with a positive scale and the
// scales to increase strictly from easy to hard.
func (t DifficultyTable) Validate() error {
	prev := 0.0
	for _, d := range difficultyOrder {
		s, ok := t[d]
		if !ok {
			return fmt.Errorf("difficulty %q has no scale", d)
		}
		if s <= prev {
			return fmt.Errorf("difficulty %q scale %v must be greater than %v", d, s, prev)
		}
		prev = s
	}
	return nil
}

// String renders the table in the same form ParseDifficultyTable reads.
func (t DifficultyTable) String() string {
	keys := make([]string, 0, len(t))
	for d := range t {
		keys = append(keys, string(d))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatFloat(t[Difficulty(k)], 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// ParseDifficultyTable reads "easy=0.5,medium=1,hard=1.25". The result is
// validated.
func ParseDifficultyTable(s string) (DifficultyTable, error) {
	t := DifficultyTable{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("difficulty entry %q: expected name=scale", part)
		}
		d, err := ParseDifficulty(name)
		if err != nil {
			return nil, err
		}
		scale, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("difficulty %q: %w", d, err)
		}
		t[d] = scale
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
