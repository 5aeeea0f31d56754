// internal/triage/classify.go
package triage

import (
	"strings"
	"unicode/utf8"

	"github.com/Corphon/Diplomat/internal/models"
)

const (
	// MinCommentLength is the shortest comment worth a remote call.
	MinCommentLength = 12
	// PositiveSkipLength is the length under which a comment with a positive hint is not analyzed.
	PositiveSkipLength = 80
)

var positiveHints = []string{"great", "love", "awesome", "thanks", "thank you", "nice", "cool"}

// Decision is the local verdict for a newly observed comment.
type Decision int

const (
	// Analyze sends the comment to the gateway.
	Analyze Decision = iota
	// SkipPositive records the comment as positive without a remote call.
	SkipPositive
	// SkipNeutral records the comment as neutral without a remote call.
	SkipNeutral
)

func (d Decision) String() string {
	switch d {
	case SkipPositive:
		return "skip-positive"
	case SkipNeutral:
		return "skip-neutral"
	default:
		return "analyze"
	}
}

// HasPositiveHint reports whether text contains one of the praise keywords, ignoring case.
func HasPositiveHint(text string) bool {
	lower := strings.ToLower(text)
	for _, hint := range positiveHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Classify decides locally whether a comment needs remote analysis.
// Length is counted in runes of the trimmed text. Long comments with a hint still go remote.
func Classify(text string) Decision {
	text = strings.TrimSpace(text)
	length := utf8.RuneCountInString(text)
	positive := HasPositiveHint(text)

	switch {
	case length < MinCommentLength && positive:
		return SkipPositive
	case length < MinCommentLength:
		return SkipNeutral
	case positive && length < PositiveSkipLength:
		return SkipPositive
	default:
		return Analyze
	}
}

// heuristicStatus is the status given to a comment that is not toxic.
func heuristicStatus(text string) models.CommentStatus {
	if HasPositiveHint(text) {
		return models.StatusPositive
	}
	return models.StatusNeutral
}

func (d Decision) status() models.CommentStatus {
	switch d {
	case SkipPositive:
		return models.StatusPositive
	case SkipNeutral:
		return models.StatusNeutral
	default:
		return models.StatusPending
	}
}
