// internal/triage/page.go
package triage

import (
	"context"

	"github.com/Corphon/Diplomat/internal/models"
)

// Reveal action labels.
const (
	RevealActionLabel = "View constructive version"
	RevealedLabel     = "Constructive version shown"
)

// FallbackRewrite replaces a toxic comment when no rewrite is available.
const FallbackRewrite = "Non-constructive criticism."

// Page is the host surface that owns comment handles. The engine reads text through it once
// per comment and renders state back onto it.
type Page interface {
	// Comments lists the handles currently present, in page order.
	Comments() []models.CommentID
	// Text returns the visible text of a comment, false if the handle is gone.
	Text(id models.CommentID) (string, bool)
	SetText(id models.CommentID, text string)
	SetBadge(id models.CommentID, status models.CommentStatus)
	// SetObscured toggles the "hidden until revealed" marker.
	SetObscured(id models.CommentID, obscured bool)
	// SetRevealAction shows (or updates) the user action that reveals the rewrite.
	SetRevealAction(id models.CommentID, label string, enabled bool)
}

// Analyzer submits one comment for remote scoring.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}
