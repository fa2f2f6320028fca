package session

import (
	"time"

	"segviewer/internal/domain"
)

type Phase string

const (
	PhaseEmpty       Phase = "empty"
	PhaseLoading     Phase = "loading"
	PhaseLoaded      Phase = "loaded"
	PhaseLoadingMore Phase = "loading_more"
	PhaseLoadingAll  Phase = "loading_all"
	PhaseIdle        Phase = "idle"
)

// State is the accumulated viewer state of one browser session.
type State struct {
	Page       int
	ShowingAll bool
	Images     domain.Batch
	Phase      Phase

	// Pagination controls as of the last successful load.
	HasMore        bool
	ShowAllVisible bool

	LastError string
	UpdatedAt time.Time
}

func NewState() State {
	return State{Page: 1, Images: domain.NewBatch(), Phase: PhaseEmpty}
}

// Reset returns to page 1 with no images and hidden pagination.
func (s *State) Reset() {
	*s = NewState()
}

// Replace swaps the accumulated images for b.
func (s *State) Replace(b domain.Batch) {
	s.Images = b.Clone()
}

// Add appends a page's sequences to the accumulated images.
func (s *State) Add(p domain.Page) {
	s.Images.Append(p)
}

type Stats struct {
	CurrentPage      int           `json:"currentPage"`
	ShowingAll       bool          `json:"showingAll"`
	Phase            Phase         `json:"phase"`
	TotalImages      domain.Totals `json:"totalImages"`
	ValidComparisons int           `json:"validComparisons"`
}

func (s State) Stats() Stats {
	return Stats{
		CurrentPage:      s.Page,
		ShowingAll:       s.ShowingAll,
		Phase:            s.Phase,
		TotalImages:      s.Images.Totals(),
		ValidComparisons: s.Images.Pairs(),
	}
}
