package render

import (
	"fmt"
	"net/url"
	"strings"

	"segviewer/internal/domain"
)

const (
	originalTitle  = "Original image"
	segmentedTitle = "Segmented result"
)

type MetricKind int

const (
	Decimal MetricKind = iota
	Percentage
)

// FormatMetric renders a score the way the metrics card shows it.
func FormatMetric(s domain.Score, kind MetricKind) string {
	if !s.Valid {
		return "N/A"
	}
	switch kind {
	case Percentage:
		return fmt.Sprintf("%.1f%%", s.Value*100)
	default:
		return fmt.Sprintf("%.3f", s.Value)
	}
}

// NormalizePath replaces every backslash with a forward slash. Windows-style
// backend paths otherwise break the image and modal URLs.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// FileName is the last path segment, or "file" when there is none.
func FileName(p string) string {
	p = NormalizePath(p)
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "file"
	}
	return p
}

// ModalHref links to the full-size viewer for an image.
func ModalHref(src, caption string) string {
	q := url.Values{}
	q.Set("src", NormalizePath(src))
	q.Set("caption", caption)
	return "/view?" + q.Encode()
}

type Cell struct {
	Available bool
	Title     string
	Name      string
	URL       string
	Alt       string
	Caption   string
	ModalHref string
}

type MetricsCard struct {
	Similarity string
	IoU        string
	Dice       string
	Precision  string
}

type Row struct {
	Number    int
	Original  Cell
	Segmented Cell

	// At most one of Metrics / MetricsMissing is set; neither is set for
	// rows without both images.
	Metrics        *MetricsCard
	MetricsMissing bool
}

type Stats struct {
	Originals int
	Segmented int
	Possible  int
}

// View is everything the comparison section needs, derived from a batch.
type View struct {
	Empty      bool
	Stats      Stats
	Rows       []Row
	ValidPairs int
}

// Build turns accumulated images into a view-model. It has no side effects;
// imageURL maps a backend path to the URL the browser should fetch.
func Build(b domain.Batch, imageURL func(string) string) View {
	if imageURL == nil {
		imageURL = func(p string) string { return p }
	}
	if b.Empty() {
		return View{Empty: true}
	}

	pairs := b.Pairs()
	v := View{
		Stats: Stats{
			Originals: len(b.Originals),
			Segmented: len(b.Segmented),
			Possible:  pairs,
		},
		ValidPairs: pairs,
	}

	rows := b.Rows()
	v.Rows = make([]Row, 0, rows)
	for i := 0; i < rows; i++ {
		row := Row{
			Number:    i + 1,
			Original:  cellAt(b.Originals, i, originalTitle, imageURL),
			Segmented: cellAt(b.Segmented, i, segmentedTitle, imageURL),
		}
		if i < len(b.Metrics) && i < pairs {
			m := b.Metrics[i]
			row.Metrics = &MetricsCard{
				Similarity: FormatMetric(m.Similarity, Percentage),
				IoU:        FormatMetric(m.IoU, Decimal),
				Dice:       FormatMetric(m.Dice, Decimal),
				Precision:  FormatMetric(m.Precision, Decimal),
			}
		} else if i < pairs {
			row.MetricsMissing = true
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func cellAt(paths []string, i int, title string, imageURL func(string) string) Cell {
	if i >= len(paths) {
		return Cell{Title: title}
	}
	name := FileName(paths[i])
	label := fmt.Sprintf("%s %d", title, i+1)
	caption := label + ": " + name
	src := NormalizePath(imageURL(paths[i]))
	return Cell{
		Available: true,
		Title:     title,
		Name:      name,
		URL:       src,
		Alt:       label,
		Caption:   caption,
		ModalHref: ModalHref(src, caption),
	}
}
