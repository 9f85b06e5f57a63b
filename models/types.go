package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Change event types
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventSync   = "SYNC"
)

// Store backends
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

var (
	// ErrIdeaNotFound is returned by every idea store when the id does not exist.
	ErrIdeaNotFound = errors.New("idea not found")
	// ErrPageOutOfRange is returned for a page whose offset does not fit in an int.
	ErrPageOutOfRange = errors.New("page out of range")
)

// PageOffset returns the row offset of a 1-based page. It reports false when
// page or size is not positive, or when the last row of the page would
// overflow an int.
func PageOffset(page, size int) (int, bool) {
	if page < 1 || size < 1 {
		return 0, false
	}
	if page-1 > (math.MaxInt-size)/size {
		return 0, false
	}
	return (page - 1) * size, true
}

// Request types

type CreateIdeaRequest struct {
	Name      string `json:"name" validate:"max=80"`
	Headline  string `json:"headline" validate:"required,max=120"`
	Lightning string `json:"lightning" validate:"max=200"`
	Idea      string `json:"idea" validate:"max=2000"`
}

// Normalize trims the headline the same way the submission form does.
func (r CreateIdeaRequest) Normalize() CreateIdeaRequest {
	r.Headline = strings.TrimSpace(r.Headline)
	return r
}

type ChargeRequest struct {
	IdeaID int64 `json:"ideaId" validate:"required,gt=0"`
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Response types

type ListIdeasResponse struct {
	Ideas    []Idea `json:"ideas"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type CreditVoteResponse struct {
	IdeaID int64 `json:"idea_id"`
	Votes  int64 `json:"votes"`
}

// Domain types

// Idea is one submitted idea as held by the external store.
type Idea struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Headline  string    `json:"headline" db:"headline"`
	Lightning string    `json:"lightning" db:"lightning"`
	Idea      string    `json:"idea" db:"idea"`
	Votes     int64     `json:"votes" db:"votes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IdeaRow is the loose shape rows arrive in from the store and its change
// feed. Older rows carry title/description instead of headline/idea, and any
// field may be missing or null.
type IdeaRow struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Title       *string `json:"title"`
	Headline    *string `json:"headline"`
	Lightning   *string `json:"lightning"`
	Idea        *string `json:"idea"`
	Description *string `json:"description"`
	Votes       *int64  `json:"votes"`
	CreatedAt   *string `json:"created_at"`
}

// ToIdea applies the field fallbacks and defaults every missing value.
func (r IdeaRow) ToIdea() Idea {
	idea := Idea{
		ID:        r.ID,
		Name:      str(r.Name),
		Headline:  firstNonEmpty(str(r.Headline), str(r.Title)),
		Lightning: str(r.Lightning),
		Idea:      firstNonEmpty(str(r.Idea), str(r.Description)),
	}
	if r.Votes != nil && *r.Votes > 0 {
		idea.Votes = *r.Votes
	}
	if r.CreatedAt != nil {
		idea.CreatedAt = parseTime(*r.CreatedAt)
	}
	return idea
}

// Timestamps arrive with or without a zone depending on the column type.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ChangeEvent is one notification from the store's change feed. Sync events
// carry the complete idea list in Snapshot instead of a single record.
type ChangeEvent struct {
	Type     string `json:"type"`
	Record   Idea   `json:"record"`
	Old      Idea   `json:"old_record"`
	Snapshot []Idea `json:"snapshot,omitempty"`
}

// Charge is a Lightning invoice created for one vote attempt.
type Charge struct {
	ID      string `json:"id"`
	Invoice string `json:"invoice"`
	Amount  int64  `json:"amount"`
}

// View types

// BodyView is what the renderer needs to paint one bubble.
type BodyView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Headline  string  `json:"headline"`
	Lightning string  `json:"lightning"`
	Idea      string  `json:"idea"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Expanded  bool    `json:"expanded"`
	Paused    bool    `json:"paused"`
	Votes     int64   `json:"votes"`
}

type ModalView struct {
	State  string  `json:"state"`
	IdeaID int64   `json:"idea_id,omitempty"`
	Charge *Charge `json:"charge,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Frame is one full view of a board, sent after every tick and event.
type Frame struct {
	Seq      uint64     `json:"seq"`
	Expanded *int64     `json:"expanded"`
	Bodies   []BodyView `json:"bodies"`
	Modal    ModalView  `json:"modal"`
	FormOpen bool       `json:"form_open"`
	Error    string     `json:"error,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
