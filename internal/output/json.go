package output

import (
	"time"

	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// DomainStatus is one row of the sync status table.
type DomainStatus struct {
	Domain    string `json:"domain"`
	Items     int    `json:"items"`
	LocalOnly bool   `json:"local_only"`
	Pending   bool   `json:"pending"`
	State     string `json:"state"`
	// LastFlush is the last successful remote write in this process.
	LastFlush time.Time `json:"last_flush,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// SyncStatus is the output of `sync status`.
type SyncStatus struct {
	Remote   string         `json:"remote"`
	Breaker  string         `json:"breaker"`
	Degraded bool           `json:"degraded"`
	Offline  bool           `json:"offline"`
	Session  string         `json:"session"`
	User     string         `json:"user,omitempty"`
	// FolderID and Handles describe the resolved remote ids.
	FolderID string         `json:"folder_id,omitempty"`
	Handles  int            `json:"cached_handles"`
	Domains  []DomainStatus `json:"domains"`
}

// ListResponse wraps a domain listing.
type ListResponse struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
	Items  any    `json:"items"`
}

// ItemResponse reports a single created, updated or deleted record.
type ItemResponse struct {
	Status string `json:"status"`
	Domain string `json:"domain"`
	Item   any    `json:"item,omitempty"`
}

// CompletionResponse reports a habit's completion for one day.
type CompletionResponse struct {
	Status  string      `json:"status"`
	Habit   model.Habit `json:"habit"`
	Date    string      `json:"date"`
	Done    bool        `json:"done"`
	Changed bool        `json:"changed"`
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PrintList outputs a domain listing.
func (j *JSONFormatter) PrintList(domain model.Domain, count int, items any) error {
	return j.JSON(ListResponse{Domain: string(domain), Count: count, Items: items})
}

// PrintItem outputs a single record with a status word.
func (j *JSONFormatter) PrintItem(status string, domain model.Domain, item any) error {
	return j.JSON(ItemResponse{Status: status, Domain: string(domain), Item: item})
}

// PrintHabits outputs habits with their streaks.
func (j *JSONFormatter) PrintHabits(streaks []repo.Streak) error {
	if streaks == nil {
		streaks = []repo.Streak{}
	}
	return j.PrintList(model.DomainHabits, len(streaks), streaks)
}

// PrintCompletion outputs the result of habit done or undo.
func (j *JSONFormatter) PrintCompletion(h model.Habit, date string, done, changed bool) error {
	status := "unchanged"
	if changed {
		status = "updated"
	}
	return j.JSON(CompletionResponse{Status: status, Habit: h, Date: date, Done: done, Changed: changed})
}

// PrintSyncStatus outputs the sync status.
func (j *JSONFormatter) PrintSyncStatus(st SyncStatus) error {
	if st.Domains == nil {
		st.Domains = []DomainStatus{}
	}
	return j.JSON(st)
}

// PrintPreload outputs a preload report.
func (j *JSONFormatter) PrintPreload(r preload.Report) error {
	if r.Results == nil {
		r.Results = []preload.Result{}
	}
	return j.JSON(r)
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	resp := ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	}
	return j.JSON(resp)
}
