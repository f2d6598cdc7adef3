package ping

import "time"

// Event is one liveness signal from an external job. Append-only; rows are
// removed only by cascade when the monitor is deleted.
type Event struct {
	ID         int64     `json:"id"`
	MonitorID  int64     `json:"monitor_id"`
	ReceivedAt time.Time `json:"received_at"`
}
