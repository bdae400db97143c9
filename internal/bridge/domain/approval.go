package domain

import "time"

// Decision is the outcome of an approval request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
	DecisionTimeout  Decision = "timeout"
)

// ApprovalRequest is a credential query awaiting a human decision. It lives
// only in memory for the duration of the prompt.
type ApprovalRequest struct {
	RequestID         string    `json:"request_id"`
	Origin            string    `json:"origin"`
	ClientLabel       string    `json:"browser"`
	ClientFingerprint string    `json:"fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	EntryCount        int       `json:"entry_count"`
	UsernamePreview   string    `json:"username_preview,omitempty"`
}

// ApprovalResponse records the decision for a request. When Remember is set
// the (origin, fingerprint) outcome is persisted and bypasses future prompts.
type ApprovalResponse struct {
	RequestID string    `json:"request_id"`
	Decision  Decision  `json:"decision"`
	Remember  bool      `json:"remember"`
	Timestamp time.Time `json:"timestamp"`
}

// RememberedDecision is a persisted approval outcome keyed by
// (origin, client fingerprint). Denials are remembered too: a remembered "no"
// auto-rejects without prompting until it is revoked.
type RememberedDecision struct {
	Origin      string    `json:"origin"`
	Fingerprint string    `json:"fingerprint"`
	Approved    bool      `json:"approved"`
	Timestamp   time.Time `json:"timestamp"`
}
