package service

import (
	"math/rand"
	"testing"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
)

func makePool(counts map[model.Difficulty]int) []model.Question {
	var pool []model.Question
	for diff, n := range counts {
		for i := 0; i < n; i++ {
			pool = append(pool, model.Question{
				ID:           uuid.New(),
				QuestionType: model.QuestionTypeMCQ,
				Difficulty:   diff,
			})
		}
	}
	return pool
}

func countByDifficulty(qs []model.Question) map[model.Difficulty]int {
	counts := make(map[model.Difficulty]int)
	for _, q := range qs {
		counts[q.Difficulty]++
	}
	return counts
}

func assertDistinct(t *testing.T, qs []model.Question) {
	t.Helper()
	seen := make(map[uuid.UUID]struct{}, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("duplicate question %s in selection", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func TestSampleBalanced_SingleDifficultyUniform(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{model.DifficultyEasy: 30})
	rng := rand.New(rand.NewSource(1))

	got := sampleBalanced(pool, 10, rng)
	if len(got) != 10 {
		t.Fatalf("selected %d questions, want 10", len(got))
	}
	assertDistinct(t, got)
}

func TestSampleBalanced_MixedPoolComposition(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{
		model.DifficultyEasy:   50,
		model.DifficultyMedium: 50,
		model.DifficultyHard:   50,
	})

	for seed := int64(0); seed < 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		got := sampleBalanced(pool, 20, rng)
		if len(got) != 20 {
			t.Fatalf("seed %d: selected %d questions, want 20", seed, len(got))
		}
		assertDistinct(t, got)

		counts := countByDifficulty(got)
		// 20 questions split 40/40/20: 8 easy, 8 medium, 4 hard.
		if counts[model.DifficultyEasy] != 8 || counts[model.DifficultyMedium] != 8 || counts[model.DifficultyHard] != 4 {
			t.Errorf("seed %d: composition = %v, want 8/8/4", seed, counts)
		}
	}
}

func TestSampleBalanced_HardBucketAbsorbsRounding(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{
		model.DifficultyEasy:   30,
		model.DifficultyMedium: 30,
		model.DifficultyHard:   30,
	})
	rng := rand.New(rand.NewSource(7))

	// 13 * 40 / 100 = 5 easy, 5 medium; hard absorbs the remainder (3).
	got := sampleBalanced(pool, 13, rng)
	if len(got) != 13 {
		t.Fatalf("selected %d questions, want 13", len(got))
	}
	counts := countByDifficulty(got)
	if counts[model.DifficultyEasy] != 5 || counts[model.DifficultyMedium] != 5 || counts[model.DifficultyHard] != 3 {
		t.Errorf("composition = %v, want 5/5/3", counts)
	}
}

func TestSampleBalanced_ShortBucketBackfills(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{
		model.DifficultyEasy:   2,
		model.DifficultyMedium: 20,
		model.DifficultyHard:   20,
	})
	rng := rand.New(rand.NewSource(3))

	// Easy target is 8 but only 2 exist; the shortfall must be backfilled
	// so the draw never comes up short while the pool is large enough.
	got := sampleBalanced(pool, 20, rng)
	if len(got) != 20 {
		t.Fatalf("selected %d questions, want 20", len(got))
	}
	assertDistinct(t, got)

	counts := countByDifficulty(got)
	if counts[model.DifficultyEasy] != 2 {
		t.Errorf("easy count = %d, want all 2 available", counts[model.DifficultyEasy])
	}
}

func TestSampleBalanced_UnsetDifficultyOnlyViaBackfill(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{
		model.DifficultyEasy: 10,
		model.DifficultyHard: 10,
	})
	for i := 0; i < 10; i++ {
		pool = append(pool, model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeMCQ})
	}
	rng := rand.New(rand.NewSource(11))

	// Targets for 10: 4 easy, 4 medium, 2 hard. The medium bucket is empty,
	// so 4 slots backfill from the whole pool; only those slots can carry
	// unset-difficulty questions.
	got := sampleBalanced(pool, 10, rng)
	if len(got) != 10 {
		t.Fatalf("selected %d questions, want 10", len(got))
	}
	assertDistinct(t, got)
	if n := countByDifficulty(got)[""]; n > 4 {
		t.Errorf("unset-difficulty count = %d, want at most the 4 backfill slots", n)
	}
}

func TestSampleBalanced_WholePoolWhenTargetCoversIt(t *testing.T) {
	pool := makePool(map[model.Difficulty]int{
		model.DifficultyEasy: 3,
		model.DifficultyHard: 2,
	})
	rng := rand.New(rand.NewSource(5))

	got := sampleBalanced(pool, 5, rng)
	if len(got) != 5 {
		t.Fatalf("selected %d questions, want all 5", len(got))
	}
	assertDistinct(t, got)
}

func TestFilterPool(t *testing.T) {
	mk := func(qType model.QuestionType, chapter string) model.Question {
		return model.Question{ID: uuid.New(), QuestionType: qType, Chapter: chapter}
	}
	pool := []model.Question{
		mk(model.QuestionTypeMCQ, "algebra"),
		mk(model.QuestionTypeMSQ, "algebra"),
		mk(model.QuestionTypeMCQ, "geometry"),
		mk(model.QuestionTypeFillBlank, "geometry"),
	}

	tests := []struct {
		name     string
		types    []string
		chapters []string
		want     int
	}{
		{name: "all sentinel keeps everything", types: []string{model.FilterAll}, chapters: []string{model.FilterAll}, want: 4},
		{name: "type filter", types: []string{"MCQ"}, chapters: []string{model.FilterAll}, want: 2},
		{name: "chapter filter", types: []string{model.FilterAll}, chapters: []string{"geometry"}, want: 2},
		{name: "both filters", types: []string{"MCQ"}, chapters: []string{"algebra"}, want: 1},
		{name: "no match", types: []string{"DESCRIPTIVE"}, chapters: []string{model.FilterAll}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := &model.ExamMeta{QuestionTypes: tt.types, Chapters: tt.chapters}
			if got := filterPool(pool, meta); len(got) != tt.want {
				t.Errorf("filterPool() kept %d questions, want %d", len(got), tt.want)
			}
		})
	}
}
