// internal/terminal/page.go
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/fatih/color"
)

type entry struct {
	id          models.CommentID
	text        string
	status      models.CommentStatus
	badged      bool
	obscured    bool
	actionLabel string
	actionOn    bool
}

// Page is an in-memory comment page rendered to a terminal.
type Page struct {
	mu      sync.Mutex
	entries map[models.CommentID]*entry
	order   []models.CommentID
}

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{entries: make(map[models.CommentID]*entry)}
}

// Add places a comment on the page. Re-adding a known id keeps the current text.
func (p *Page) Add(id models.CommentID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[id]; ok {
		return
	}
	p.entries[id] = &entry{id: id, text: text}
	p.order = append(p.order, id)
}

// Comments returns ids in insertion order.
func (p *Page) Comments() []models.CommentID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.CommentID, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Page) Text(id models.CommentID) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return "", false
	}
	return e.text, true
}

func (p *Page) SetText(id models.CommentID, text string) {
	p.update(id, func(e *entry) { e.text = text })
}

func (p *Page) SetBadge(id models.CommentID, status models.CommentStatus) {
	p.update(id, func(e *entry) {
		e.status = status
		e.badged = true
	})
}

func (p *Page) SetObscured(id models.CommentID, obscured bool) {
	p.update(id, func(e *entry) { e.obscured = obscured })
}

func (p *Page) SetRevealAction(id models.CommentID, label string, enabled bool) {
	p.update(id, func(e *entry) {
		e.actionLabel = label
		e.actionOn = enabled
	})
}

func (p *Page) update(id models.CommentID, fn func(*entry)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		fn(e)
	}
}

var (
	badgeColors = map[models.CommentStatus]*color.Color{
		models.StatusPositive:  color.New(color.FgGreen),
		models.StatusNeutral:   color.New(color.FgCyan),
		models.StatusRewritten: color.New(color.FgHiMagenta),
		models.StatusToxic:     color.New(color.FgRed, color.Bold),
		models.StatusError:     color.New(color.FgYellow),
	}
	faint  = color.New(color.Faint)
	hidden = color.New(color.FgHiBlack)
)

// Render writes every comment with its badge, visible text and reveal action.
func (p *Page) Render(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.order {
		e := p.entries[id]

		badge := faint.Sprint("… pending")
		if e.badged {
			c, ok := badgeColors[e.status]
			if !ok {
				c = badgeColors[models.StatusNeutral]
			}
			badge = c.Sprint(models.BadgeLabel(e.status))
		}

		text := e.text
		if e.obscured {
			text = hidden.Sprint(strings.Repeat("█", min(len([]rune(e.text)), 40)))
		}

		fmt.Fprintf(w, "%-14s %s  %s\n", id, badge, text)
		if e.actionLabel != "" {
			state := "enabled"
			if !e.actionOn {
				state = "disabled"
			}
			fmt.Fprintf(w, "%-14s   [%s] (%s)\n", "", e.actionLabel, state)
		}
	}
}
