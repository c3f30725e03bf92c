package bulktransition

import (
	"time"
)

// Report summarizes one invocation.
type Report struct {
	InvocationID string `json:"invocation_id"`
	Service      string `json:"service"`
	QueueURL     string `json:"queue_url"`

	Allowance int `json:"allowance"`
	Requested int `json:"requested"`
	Fetched   int `json:"fetched"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`

	State State   `json:"state"`
	Trail []State `json:"trail"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func newReport(invocationID, service, queueURL string, startedAt time.Time) *Report {
	return &Report{
		InvocationID: invocationID,
		Service:      service,
		QueueURL:     queueURL,
		State:        StateStart,
		Trail:        []State{StateStart},
		StartedAt:    startedAt,
	}
}

// Status returns the completion acknowledgment, or the terminal state when the invocation did not complete.
func (r *Report) Status() string {
	if r == nil {
		return ""
	}
	if r.State == StateComplete {
		return statusComplete
	}
	return "bulk transition: " + string(r.State)
}

func (r *Report) advance(next State) bool {
	if !r.State.CanTransition(next) {
		return false
	}
	r.State = next
	r.Trail = append(r.Trail, next)
	return true
}

func (r *Report) fields() map[string]any {
	return map[string]any{
		"allowance": r.Allowance,
		"fetched":   r.Fetched,
		"processed": r.Processed,
		"failed":    r.Failed,
		"state":     string(r.State),
		"duration":  r.Duration.String(),
	}
}
