package backend

import "time"

// ChatRequest is the body of POST /api/chat/.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response      string         `json:"response"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// HistoryMessage is one stored chat turn.
type HistoryMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CoachRequest is the body of POST /api/coach/feedback.
type CoachRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// CoachResponse carries the conversation partner's feedback.
type CoachResponse struct {
	Feedback string `json:"feedback"`
}

// Quote is the daily motivational quote.
type Quote struct {
	Quote  string `json:"quote"`
	Date   string `json:"date"`
	Cached bool   `json:"cached"`
}

// TrackingEntry is the body of POST /api/tracking/log.
type TrackingEntry struct {
	UserID    string     `json:"user_id"`
	Type      string     `json:"type" validate:"required,oneof=sleep water gym mood work learning"`
	Value     float64    `json:"value"`
	Notes     string     `json:"notes,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TrackingRecord is a stored tracking entry.
type TrackingRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dashboard is the analytics summary for the last N days.
type Dashboard struct {
	SleepAvg     float64  `json:"sleep_avg"`
	WaterAvg     float64  `json:"water_avg"`
	GymCount     int      `json:"gym_count"`
	MoodAvg      float64  `json:"mood_avg"`
	TotalEntries int      `json:"total_entries"`
	Insights     []string `json:"insights"`
}
