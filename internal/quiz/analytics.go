package quiz

import "github.com/memorylane/backend/internal/models"

// Summarize builds the read-only analytics view over a session. It never
// mutates core state.
func Summarize(sess models.QuizSession) models.SessionSummary {
	summary := models.SessionSummary{
		SessionID:      sess.SessionID,
		UserID:         sess.UserID,
		TotalQuestions: len(sess.Questions),
		ByDifficulty:   make(map[int]models.BucketStat),
		Degraded:       sess.Degraded,
	}

	type bucket struct {
		count   int
		correct int
		latency float64
	}
	perDiff := make(map[int]*bucket)

	totalLatency := 0.0
	for _, q := range sess.Questions {
		if !q.Answered {
			continue
		}
		summary.Answered++
		lat := float64(q.ResponseTimeMS) / 1000.0
		totalLatency += lat
		if q.Correct {
			summary.CorrectAnswers++
		}
		b, ok := perDiff[q.Difficulty]
		if !ok {
			b = &bucket{}
			perDiff[q.Difficulty] = b
		}
		b.count++
		b.latency += lat
		if q.Correct {
			b.correct++
		}
	}

	if summary.Answered > 0 {
		summary.Accuracy = float64(summary.CorrectAnswers) / float64(summary.Answered)
		summary.AvgLatencySec = totalLatency / float64(summary.Answered)
	}
	for diff, b := range perDiff {
		summary.ByDifficulty[diff] = models.BucketStat{
			Count:         b.count,
			Accuracy:      float64(b.correct) / float64(b.count),
			AvgLatencySec: b.latency / float64(b.count),
		}
	}

	summary.Insights = insights(summary)
	summary.Recommendations = recommendations(summary)
	return summary
}

func insights(s models.SessionSummary) []string {
	var out []string

	switch {
	case s.Accuracy >= 0.9:
		out = append(out, "Excellent memory performance! You're doing great with recall.")
	case s.Accuracy >= 0.7:
		out = append(out, "Good memory performance with room for improvement.")
	case s.Accuracy >= 0.5:
		out = append(out, "Memory performance could be improved with practice.")
	default:
		out = append(out, "Consider focusing on memory exercises and techniques.")
	}

	switch {
	case s.AvgLatencySec <= 3.0:
		out = append(out, "Very quick responses - excellent cognitive processing speed.")
	case s.AvgLatencySec <= 6.0:
		out = append(out, "Good response times - processing speed is within normal range.")
	default:
		out = append(out, "Consider exercises to improve processing speed.")
	}

	if hard, ok := s.ByDifficulty[models.DifficultyHardLevel]; ok {
		if hard.Accuracy >= 0.7 {
			out = append(out, "Great job with challenging memories!")
		} else if hard.Accuracy < 0.4 {
			out = append(out, "Focus on practicing with more challenging memories.")
		}
	}

	return out
}

func recommendations(s models.SessionSummary) []string {
	var out []string

	if s.Accuracy < 0.7 {
		out = append(out, "Practice with easier memories first to build confidence.")
		out = append(out, "Try using memory techniques like association and visualization.")
	}
	if s.AvgLatencySec > 6.0 {
		out = append(out, "Practice with timed exercises to improve processing speed.")
	}
	if easy, ok := s.ByDifficulty[models.DifficultyEasyLevel]; ok && easy.Accuracy >= 0.9 {
		out = append(out, "Ready to try more challenging memories!")
	}
	out = append(out, "Regular practice will help maintain and improve memory function.")
	return out
}
