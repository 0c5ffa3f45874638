package domain

// CleanupResult is the audit record of one retention run.
type CleanupResult struct {
	ID               string            `json:"id"`
	Trigger          string            `json:"trigger"`
	Success          bool              `json:"success"`
	TotalDeleted     int               `json:"total_deleted"`
	PerChannelCounts map[string]int    `json:"per_channel_counts"`
	Errors           map[string]string `json:"errors,omitempty"`
	CutoffDate       Millis            `json:"cutoff_date"`
	Timestamp        Millis            `json:"timestamp"`
}
