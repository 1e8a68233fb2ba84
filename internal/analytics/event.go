package analytics

import "time"

// Topics for click analytics events.
const (
	TopicClickRecorded  = "click.recorded"
	TopicClickThrottled = "click.throttled"
)

// ClickEvent is emitted for every admitted click.
type ClickEvent struct {
	Count          int64     `json:"count"`
	Mode           string    `json:"mode"`
	WindowCount    int64     `json:"windowCount"`
	QuotaRemaining int64     `json:"quotaRemaining"`
	Identity       string    `json:"identity"`
	RequestID      string    `json:"requestId,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	ClickedAt      time.Time `json:"clickedAt"`
}

// ThrottleEvent is emitted when the limiter rejects a click.
type ThrottleEvent struct {
	Identity    string    `json:"identity"`
	RequestID   string    `json:"requestId,omitempty"`
	WindowCount int64     `json:"windowCount"`
	RetryAfter  int64     `json:"retryAfterSeconds"`
	ThrottledAt time.Time `json:"throttledAt"`
}
