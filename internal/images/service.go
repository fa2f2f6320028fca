package images

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"segviewer/internal/domain"
)

const compareImagesPath = "/compare-images/"

// Fetcher is the transport the service needs; *httpx.Client satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out any) error
	BaseURL() string
}

type Options struct {
	PerPage      int
	BulkLoadSize int
	MaxPages     int
}

// Service translates raw backend pages into normalized pages and batches.
// It never caches: every call goes to the backend.
type Service struct {
	api  Fetcher
	opts Options
}

func NewService(api Fetcher, opts Options) *Service {
	if opts.PerPage < 1 {
		opts.PerPage = 5
	}
	if opts.BulkLoadSize < 1 {
		opts.BulkLoadSize = 20
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 500
	}
	return &Service{api: api, opts: opts}
}

func (s *Service) PerPage() int { return s.opts.PerPage }

// Result is the soft outcome of a single page load.
type Result struct {
	OK   bool
	Page domain.Page
	Err  string
}

func (s *Service) fetchPage(ctx context.Context, page, perPage int) (domain.Page, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(perPage))

	var raw domain.PageResponse
	if err := s.api.GetJSON(ctx, compareImagesPath+"?"+q.Encode(), &raw); err != nil {
		return domain.Page{}, err
	}
	p := raw.Normalize()
	log.Printf("compare-images page=%d per_page=%d originals=%d segmented=%d metrics=%d has_more=%t",
		page, perPage, len(p.Originals), len(p.Segmented), len(p.Metrics), p.HasMore)
	return p, nil
}

// LoadPage fetches one page. Failures are reported in the Result, never as an error.
func (s *Service) LoadPage(ctx context.Context, page, perPage int) Result {
	if perPage < 1 {
		perPage = s.opts.PerPage
	}
	p, err := s.fetchPage(ctx, page, perPage)
	if err != nil {
		return Result{Err: s.failureMessage(err)}
	}
	return Result{OK: true, Page: p}
}

func (s *Service) failureMessage(err error) string {
	return fmt.Sprintf("Error loading images: %v. Check that the server is running at %s", err, s.api.BaseURL())
}

// LoadRange fetches pages start..end in order, stopping early once a page
// reports no more data. On failure it returns what was gathered so far along
// with the error.
func (s *Service) LoadRange(ctx context.Context, start, end, perPage int) (domain.Batch, error) {
	if perPage < 1 {
		perPage = s.opts.BulkLoadSize
	}
	out := domain.NewBatch()
	for page := start; page <= end; page++ {
		res := s.LoadPage(ctx, page, perPage)
		if !res.OK {
			log.Printf("compare-images range stopped page=%d err=%s", page, res.Err)
			return out, fmt.Errorf("page %d: %s", page, res.Err)
		}
		out.Append(res.Page)
		if !res.Page.HasMore {
			break
		}
	}
	return out, nil
}

// LoadAll walks every page from 1 with the bulk page size until the backend
// reports no more data, or MaxPages is reached.
func (s *Service) LoadAll(ctx context.Context) (domain.Batch, error) {
	out := domain.NewBatch()
	page := 1
	for {
		res := s.LoadPage(ctx, page, s.opts.BulkLoadSize)
		if !res.OK {
			log.Printf("compare-images load all failed page=%d err=%s", page, res.Err)
			return out, fmt.Errorf("page %d: %s", page, res.Err)
		}
		out.Append(res.Page)
		if !res.Page.HasMore {
			break
		}
		if page >= s.opts.MaxPages {
			log.Printf("compare-images load all stopped at max_pages=%d with has_more=true", s.opts.MaxPages)
			break
		}
		page++
	}
	log.Printf("compare-images load all done pages=%d originals=%d segmented=%d metrics=%d",
		page, len(out.Originals), len(out.Segmented), len(out.Metrics))
	return out, nil
}

// ImageURL turns a backend-relative image path into an absolute URL.
func (s *Service) ImageURL(path string) string {
	return s.api.BaseURL() + path
}
