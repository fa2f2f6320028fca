package viewer

import (
	"context"
	"io"
	"log"
	"time"

	"segviewer/internal/domain"
	"segviewer/internal/images"
	"segviewer/internal/render"
	"segviewer/internal/session"
)

const timestampLayout = "2006-01-02 15:04:05"

// Loader is the part of *images.Service the controller drives.
type Loader interface {
	LoadPage(ctx context.Context, page, perPage int) images.Result
	LoadAll(ctx context.Context) (domain.Batch, error)
	ImageURL(path string) string
	PerPage() int
}

type Options struct {
	AnimationMS        int
	ThumbnailMaxHeight int
	Location           *time.Location

	// BackendStatus reports the latest health probe. Nil hides the badge.
	BackendStatus func() render.BackendStatus
}

// Controller owns every action a viewer session can take. Actions on one
// session are serialized; the state lock is only taken to publish a phase
// and to commit results, so stats and page renders stay readable while a
// fetch is in flight.
type Controller struct {
	images   Loader
	sessions *session.Store
	renderer *render.Renderer
	opts     Options
	now      func() time.Time
}

func New(loader Loader, sessions *session.Store, renderer *render.Renderer, opts Options) *Controller {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Controller{
		images:   loader,
		sessions: sessions,
		renderer: renderer,
		opts:     opts,
		now:      time.Now,
	}
}

func (c *Controller) Sessions() *session.Store { return c.sessions }

// Load is the "load images" action: start over from page 1.
func (c *Controller) Load(ctx context.Context, s *session.Session) {
	log.Printf("viewer load session=%s", s.ID)
	s.Serialize(func() { c.loadFirstPage(ctx, s) })
}

// Refresh behaves exactly like Load; it exists so the two buttons log apart.
func (c *Controller) Refresh(ctx context.Context, s *session.Session) {
	log.Printf("viewer refresh session=%s", s.ID)
	s.Serialize(func() { c.loadFirstPage(ctx, s) })
}

// loadFirstPage must run under s.Serialize.
func (c *Controller) loadFirstPage(ctx context.Context, s *session.Session) {
	s.Do(func(st *session.State) {
		st.Reset()
		st.Phase = session.PhaseLoading
	})

	res := c.images.LoadPage(ctx, 1, c.images.PerPage())

	s.Do(func(st *session.State) {
		if !res.OK {
			st.Reset()
			st.LastError = res.Err
			log.Printf("viewer load failed err=%s", res.Err)
			return
		}
		st.Add(res.Page)
		c.applyPagination(st, res.Page)
		st.Phase = session.PhaseLoaded
		st.UpdatedAt = c.now()
	})
}

// LoadMore fetches the next page and appends it. On failure the accumulated
// images stay as they were and the cursor goes back, so the next attempt
// asks for the same page again.
func (c *Controller) LoadMore(ctx context.Context, s *session.Session) {
	s.Serialize(func() {
		var (
			page              int
			prev              session.Phase
			fresh, showingAll bool
		)
		s.Do(func(st *session.State) {
			switch {
			case st.Phase == session.PhaseEmpty:
				fresh = true
			case st.ShowingAll:
				showingAll = true
			default:
				prev = st.Phase
				st.Page++
				page = st.Page
				st.Phase = session.PhaseLoadingMore
			}
		})
		if fresh {
			c.loadFirstPage(ctx, s)
			return
		}
		if showingAll {
			return
		}
		log.Printf("viewer load more session=%s page=%d", s.ID, page)

		res := c.images.LoadPage(ctx, page, c.images.PerPage())

		s.Do(func(st *session.State) {
			if !res.OK {
				st.Page = page - 1
				st.Phase = prev
				st.LastError = res.Err
				log.Printf("viewer load more failed page=%d err=%s", page, res.Err)
				return
			}
			st.Add(res.Page)
			c.applyPagination(st, res.Page)
			st.Phase = session.PhaseLoaded
			st.UpdatedAt = c.now()
		})
	})
}

// ShowAll replaces the accumulated images with a full traversal. A failed
// traversal commits nothing.
func (c *Controller) ShowAll(ctx context.Context, s *session.Session) {
	s.Serialize(func() {
		var prev session.Phase
		s.Do(func(st *session.State) {
			prev = st.Phase
			st.Phase = session.PhaseLoadingAll
		})
		log.Printf("viewer show all session=%s", s.ID)

		all, err := c.images.LoadAll(ctx)

		s.Do(func(st *session.State) {
			if err != nil {
				st.Phase = prev
				st.LastError = err.Error()
				log.Printf("viewer show all failed err=%v", err)
				return
			}
			st.Replace(all)
			st.ShowingAll = true
			st.HasMore = false
			st.ShowAllVisible = false
			st.LastError = ""
			st.Phase = session.PhaseIdle
			st.UpdatedAt = c.now()
		})
	})
}

func (c *Controller) applyPagination(st *session.State, p domain.Page) {
	perPage := c.images.PerPage()
	st.HasMore = p.HasMore
	st.ShowAllVisible = p.TotalOriginals > perPage || p.TotalSegmented > perPage
	st.LastError = ""
}

func (c *Controller) Stats(s *session.Session) session.Stats {
	return s.Snapshot().Stats()
}

// PageData builds everything the page template needs from a session snapshot.
func (c *Controller) PageData(s *session.Session) render.PageData {
	st := s.Snapshot()
	data := render.PageData{
		View:           render.Build(st.Images, c.images.ImageURL),
		ContentVisible: contentVisible(st.Phase),
		Error:          st.LastError,
		Controls: render.Controls{
			LoadMoreVisible: st.HasMore && !st.ShowingAll,
			ShowAllVisible:  st.ShowAllVisible && !st.ShowingAll,
			PerPage:         c.images.PerPage(),
		},
		AnimationMS:        c.opts.AnimationMS,
		ThumbnailMaxHeight: c.opts.ThumbnailMaxHeight,
	}
	if !st.UpdatedAt.IsZero() {
		data.UpdatedAt = st.UpdatedAt.In(c.opts.Location).Format(timestampLayout)
	}
	if c.opts.BackendStatus != nil {
		data.BackendStatus = c.opts.BackendStatus()
	}
	return data
}

func (c *Controller) Render(w io.Writer, s *session.Session) error {
	return c.renderer.Page(w, c.PageData(s))
}

func (c *Controller) RenderModal(w io.Writer, src, caption string) error {
	return c.renderer.Modal(w, render.ModalData{
		Src:         src,
		Caption:     caption,
		AnimationMS: c.opts.AnimationMS,
	})
}

func contentVisible(p session.Phase) bool {
	switch p {
	case session.PhaseLoaded, session.PhaseIdle, session.PhaseLoadingMore, session.PhaseLoadingAll:
		return true
	}
	return false
}
