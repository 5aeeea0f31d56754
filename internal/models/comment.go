// internal/models/comment.go
package models

// CommentID identifies a comment handle owned by the host page.
type CommentID string

// CommentStatus is the triage state of a comment.
type CommentStatus string

const (
	StatusPending   CommentStatus = "pending"
	StatusPositive  CommentStatus = "positive"
	StatusNeutral   CommentStatus = "neutral"
	StatusToxic     CommentStatus = "toxic"
	StatusRewritten CommentStatus = "rewritten"
	StatusError     CommentStatus = "error"
)

// IsTerminal reports whether automatic processing is finished for the status.
// Toxic is not terminal because the user may still reveal the rewrite.
func (s CommentStatus) IsTerminal() bool {
	switch s {
	case StatusPositive, StatusNeutral, StatusError, StatusRewritten:
		return true
	default:
		return false
	}
}

// Comment is the engine-side record of one observed comment.
type Comment struct {
	ID            CommentID     `json:"id"`
	OriginalText  string        `json:"originalText"`  // captured once at first observation
	RewrittenText string        `json:"rewrittenText"` // empty until a rewrite exists
	Status        CommentStatus `json:"status"`
	Toxicity      float64       `json:"toxicity,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Badge labels shown next to a comment author.
var badgeLabels = map[CommentStatus]string{
	StatusPositive:  "✓ Constructive",
	StatusNeutral:   "🛠 Neutral",
	StatusRewritten: "✨ Rewritten",
	StatusToxic:     "⚠ Aggressive",
	StatusError:     "⚠ Error",
}

// BadgeLabel returns the badge text for a status, falling back to the neutral label.
func BadgeLabel(status CommentStatus) string {
	if label, ok := badgeLabels[status]; ok {
		return label
	}
	return badgeLabels[StatusNeutral]
}
