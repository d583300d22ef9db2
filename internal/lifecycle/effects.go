// internal/lifecycle/effects.go
package lifecycle

import "github.com/google/uuid"

// Effect is a side-effect intent produced by a successful transition. The
// engine only describes the work; collaborators execute it after the status
// write has committed, best effort.
type Effect interface {
	isEffect()
}

// Severity levels for user notifications.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// NotifyUser asks the notification dispatcher to deliver an in-app message.
type NotifyUser struct {
	UserID   uuid.UUID `json:"user_id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
}

// IncrementStat asks the statistics sink to bump a named counter.
type IncrementStat struct {
	Name  string `json:"name"`
	Delta int64  `json:"delta"`
}

// AppendAuditEntry asks the audit log to record who moved the donation
// between which statuses.
type AppendAuditEntry struct {
	ActorID uuid.UUID `json:"actor_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	Note    string    `json:"note,omitempty"`
}

func (NotifyUser) isEffect()       {}
func (IncrementStat) isEffect()    {}
func (AppendAuditEntry) isEffect() {}

// Stat counter names maintained by the platform.
const (
	StatCompletedTransfers = "completed_transfers"
	StatMealsShared        = "meals_shared"
)
