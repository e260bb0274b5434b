package insights

import (
	"context"
	"fmt"
	"log"

	"github.com/memorylane/backend/internal/models"
)

// Summarizer turns session and progress aggregates into caregiver-facing
// narrative text. When the LLM backend fails, deterministic fallbacks keep
// the endpoints functional.
type Summarizer struct {
	client LLMClient
}

func NewSummarizer(client LLMClient) *Summarizer {
	return &Summarizer{client: client}
}

// SessionNarrative is the narrative view of one completed session.
type SessionNarrative struct {
	SessionID string `json:"session_id"`
	Narrative string `json:"narrative"`
	Fallback  bool   `json:"fallback"`
}

// ProgressNarrative is the narrative view of a user's progress aggregate.
type ProgressNarrative struct {
	UserID    string `json:"user_id"`
	Narrative string `json:"narrative"`
	Fallback  bool   `json:"fallback"`
}

const summarySystemPrompt = "You are a compassionate cognitive health specialist helping families care for elderly memory-training participants. Be warm, encouraging, and concrete. Never diagnose."

// SessionNarrative generates a 2-3 sentence encouraging summary of one
// completed session.
func (s *Summarizer) SessionNarrative(ctx context.Context, summary *models.SessionSummary) *SessionNarrative {
	prompt := fmt.Sprintf(`Summarize this memory training session for the participant's family.

Session Data:
- Accuracy: %.0f%%
- Average Response Time: %.1f seconds
- Questions Answered: %d of %d
- Correct Answers: %d

Write a warm, encouraging summary (2-3 sentences), then one specific recommendation for family members. Plain text, no headings.`,
		summary.Accuracy*100, summary.AvgLatencySec, summary.Answered,
		summary.TotalQuestions, summary.CorrectAnswers)

	text, err := s.client.Generate(ctx, summarySystemPrompt, prompt)
	if err != nil {
		log.Printf("WARN: session narrative generation failed, using fallback: %v", err)
		return &SessionNarrative{
			SessionID: summary.SessionID,
			Narrative: fallbackSessionNarrative(summary.Accuracy),
			Fallback:  true,
		}
	}
	return &SessionNarrative{SessionID: summary.SessionID, Narrative: text}
}

// ProgressNarrative generates an overview of the user's trend across
// completed sessions.
func (s *Summarizer) ProgressNarrative(ctx context.Context, progress *models.UserProgress) *ProgressNarrative {
	prompt := fmt.Sprintf(`Summarize this participant's memory training progress for their family.

Progress Data:
- Total Sessions: %d
- Average Accuracy: %.0f%%
- Recent Accuracy: %.0f%%
- Trend: %s
- Average Response Time: %.1f seconds

Write an encouraging progress overview, what the trend means, and when the family should consult a healthcare provider. Plain text, no headings.`,
		progress.TotalSessions, progress.AvgAccuracy*100, progress.RecentAccuracy*100,
		progress.Trend, progress.AvgLatencySec)

	text, err := s.client.Generate(ctx, summarySystemPrompt, prompt)
	if err != nil {
		log.Printf("WARN: progress narrative generation failed, using fallback: %v", err)
		return &ProgressNarrative{
			UserID:    progress.UserID,
			Narrative: fallbackProgressNarrative(progress.Trend),
			Fallback:  true,
		}
	}
	return &ProgressNarrative{UserID: progress.UserID, Narrative: text}
}

// ClinicianReport is the professional assessment view over a user's
// progress aggregate.
type ClinicianReport struct {
	UserID   string `json:"user_id"`
	Report   string `json:"report"`
	Fallback bool   `json:"fallback"`
}

const clinicianSystemPrompt = "You are a clinical neuropsychologist writing professional assessment reports. Use professional terminology while remaining accessible to family members. Never diagnose."

// ClinicianReport generates a professional assessment report from the
// user's progress aggregate.
func (s *Summarizer) ClinicianReport(ctx context.Context, progress *models.UserProgress) *ClinicianReport {
	prompt := fmt.Sprintf(`Write a professional assessment report for a memory-training participant.

Assessment Data:
- Overall Accuracy: %.0f%%
- Average Response Time: %.1f seconds
- Performance Trend: %s
- Total Sessions: %d

Cover: executive summary, performance analysis, recommendations, and a monitoring plan. Plain text with short paragraphs.`,
		progress.AvgAccuracy*100, progress.AvgLatencySec, progress.Trend, progress.TotalSessions)

	text, err := s.client.Generate(ctx, clinicianSystemPrompt, prompt)
	if err != nil {
		log.Printf("WARN: clinician report generation failed, using fallback: %v", err)
		return &ClinicianReport{
			UserID:   progress.UserID,
			Report:   fallbackClinicianReport(progress.AvgAccuracy),
			Fallback: true,
		}
	}
	return &ClinicianReport{UserID: progress.UserID, Report: text}
}

func fallbackSessionNarrative(accuracy float64) string {
	switch {
	case accuracy >= 0.8:
		return "Great job! You showed excellent memory performance today. " +
			"Continue encouraging regular memory exercises and celebrate small victories."
	case accuracy >= 0.6:
		return "Good work! You're doing well with your memory exercises. " +
			"Performance is solid with room for continued improvement."
	default:
		return "Keep practicing! Every memory exercise helps strengthen cognitive abilities. " +
			"Focus on regular practice to improve memory retention and recall."
	}
}

func fallbackClinicianReport(accuracy float64) string {
	switch {
	case accuracy >= 0.8:
		return "Patient demonstrates strong cognitive performance with high accuracy and good response times. " +
			"Continue regular cognitive assessments and family engagement activities. " +
			"Schedule follow-up assessments and monitor for any significant changes."
	case accuracy >= 0.6:
		return "Patient shows moderate cognitive performance with room for improvement through continued practice. " +
			"Continue regular cognitive assessments and family engagement activities. " +
			"Schedule follow-up assessments and monitor for any significant changes."
	default:
		return "Patient may benefit from additional cognitive support and regular memory exercises. " +
			"Continue regular cognitive assessments and family engagement activities. " +
			"Schedule follow-up assessments and monitor for any significant changes."
	}
}

func fallbackProgressNarrative(trend string) string {
	switch trend {
	case "improving":
		return "Excellent progress! Memory skills are getting stronger over time. " +
			"Continue with regular exercises and family engagement."
	case "declining":
		return "Keep up the practice! Regular exercises will help improve memory. " +
			"Monitor for significant changes and consult healthcare providers if needed."
	default:
		return "Consistent performance! Good memory function is being maintained. " +
			"Continue with regular memory exercises and family engagement."
	}
}
