package domain

// ModerationResult is the policy verdict for one piece of submitted text.
type ModerationResult struct {
	Flagged  bool     `json:"flagged"`
	Crisis   bool     `json:"crisis"`
	Matches  []string `json:"matches"`
	Severity string   `json:"severity"` // "none", "warn", "crisis"
}

// SupportPost is a student submission on the peer-support wall.
type SupportPost struct {
	ID       string
	SchoolID string
	UserID   string
	Body     string
	Severity string
	Flagged  bool
}

// EmergencyContact is the guardian contact revealed to counselors during
// a crisis escalation. Reveals are rate limited and audited.
type EmergencyContact struct {
	StudentID string
	Name      string
	Phone     string
	Relation  string
}
