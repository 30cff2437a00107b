package service

import (
	"math/rand"

	"github.com/examly/examly-backend/internal/model"
)

// difficulty quota of the balanced sampler, in percent. Hard takes the
// remainder so the three buckets always sum to the requested total.
const (
	easyShare   = 40
	mediumShare = 40
)

// sampleBalanced draws total questions from pool with a 40/40/20
// easy/medium/hard split. Questions with no difficulty set match no bucket
// and only enter through the backfill pass. When the pool effectively has a
// single difficulty the split is meaningless and the draw is uniform.
// Buckets that run short are backfilled from the rest of the pool, so the
// result always has exactly total questions whenever len(pool) >= total.
// The final order is shuffled so bucket boundaries are not visible to the
// student.
//
// The caller guarantees len(pool) >= total.
func sampleBalanced(pool []model.Question, total int, rng *rand.Rand) []model.Question {
	if total >= len(pool) {
		out := make([]model.Question, len(pool))
		copy(out, pool)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	var easy, medium, hard []model.Question
	for _, q := range pool {
		switch q.Difficulty {
		case model.DifficultyEasy:
			easy = append(easy, q)
		case model.DifficultyMedium:
			medium = append(medium, q)
		case model.DifficultyHard:
			hard = append(hard, q)
		}
	}

	distinct := 0
	for _, b := range [][]model.Question{easy, medium, hard} {
		if len(b) > 0 {
			distinct++
		}
	}
	if distinct <= 1 {
		return drawN(pool, total, rng)
	}

	easyTarget := total * easyShare / 100
	mediumTarget := total * mediumShare / 100
	hardTarget := total - easyTarget - mediumTarget

	selected := make([]model.Question, 0, total)
	taken := make(map[string]struct{}, total)

	take := func(bucket []model.Question, n int) {
		for _, q := range drawN(bucket, n, rng) {
			if _, dup := taken[q.ID.String()]; dup {
				continue
			}
			taken[q.ID.String()] = struct{}{}
			selected = append(selected, q)
		}
	}

	take(easy, easyTarget)
	take(medium, mediumTarget)
	take(hard, hardTarget)

	// Short buckets leave a deficit; fill it from whatever remains.
	if len(selected) < total {
		remaining := make([]model.Question, 0, len(pool)-len(selected))
		for _, q := range pool {
			if _, dup := taken[q.ID.String()]; !dup {
				remaining = append(remaining, q)
			}
		}
		take(remaining, total-len(selected))
	}

	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	return selected
}

// drawN returns n distinct random elements of pool (all of them when
// n >= len(pool)), leaving pool untouched.
func drawN(pool []model.Question, n int, rng *rand.Rand) []model.Question {
	if n <= 0 {
		return nil
	}
	shuffled := make([]model.Question, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// filterPool applies the exam template's type and chapter allow-lists.
func filterPool(pool []model.Question, meta *model.ExamMeta) []model.Question {
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if !meta.AllowsType(q.QuestionType) {
			continue
		}
		if !meta.AllowsChapter(q.Chapter) {
			continue
		}
		out = append(out, q)
	}
	return out
}
