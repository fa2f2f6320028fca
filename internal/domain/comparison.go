package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Score is one similarity metric. Valid is false when the backend sent
// null, omitted the field, or sent something that is not a number.
type Score struct {
	Value float64
	Valid bool
}

func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' || data[0] == '"' || data[0] == '{' || data[0] == '[' || data[0] == 't' || data[0] == 'f' {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*s = Score{Value: v, Valid: true}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

type Metric struct {
	Similarity Score `json:"similarity"`
	IoU        Score `json:"iou"`
	Dice       Score `json:"dice"`
	Precision  Score `json:"precision"`
}

// UnmarshalJSON accepts anything: an entry that is not an object decodes to
// a metric with every score invalid instead of failing the whole page.
func (m *Metric) UnmarshalJSON(data []byte) error {
	*m = Metric{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	type plain Metric
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*m = Metric(p)
	return nil
}

// PageResponse is the raw /compare-images/ body. Every field is optional.
type PageResponse struct {
	Originals      []string `json:"imagens_originais"`
	Segmented      []string `json:"imagens_segmentadas"`
	Metrics        []Metric `json:"metricas_comparacao"`
	HasMore        bool     `json:"tem_mais"`
	TotalOriginals int      `json:"total_originais"`
	TotalSegmented int      `json:"total_segmentadas"`
}

// Page is a normalized page: slices are never nil.
type Page struct {
	Originals      []string `json:"originals"`
	Segmented      []string `json:"segmented"`
	Metrics        []Metric `json:"metrics"`
	HasMore        bool     `json:"hasMore"`
	TotalOriginals int      `json:"totalOriginals"`
	TotalSegmented int      `json:"totalSegmented"`
}

func (r PageResponse) Normalize() Page {
	p := Page{
		Originals:      r.Originals,
		Segmented:      r.Segmented,
		Metrics:        r.Metrics,
		HasMore:        r.HasMore,
		TotalOriginals: r.TotalOriginals,
		TotalSegmented: r.TotalSegmented,
	}
	if p.Originals == nil {
		p.Originals = []string{}
	}
	if p.Segmented == nil {
		p.Segmented = []string{}
	}
	if p.Metrics == nil {
		p.Metrics = []Metric{}
	}
	if p.TotalOriginals < 0 {
		p.TotalOriginals = 0
	}
	if p.TotalSegmented < 0 {
		p.TotalSegmented = 0
	}
	return p
}

// Batch holds three index-aligned sequences in fetch order.
type Batch struct {
	Originals []string `json:"originals"`
	Segmented []string `json:"segmented"`
	Metrics   []Metric `json:"metrics"`
}

func NewBatch() Batch {
	return Batch{Originals: []string{}, Segmented: []string{}, Metrics: []Metric{}}
}

// Append concatenates a page onto b without reordering or deduplicating.
func (b *Batch) Append(p Page) {
	b.Originals = append(b.Originals, p.Originals...)
	b.Segmented = append(b.Segmented, p.Segmented...)
	b.Metrics = append(b.Metrics, p.Metrics...)
}

func (b Batch) Clone() Batch {
	out := NewBatch()
	out.Originals = append(out.Originals, b.Originals...)
	out.Segmented = append(out.Segmented, b.Segmented...)
	out.Metrics = append(out.Metrics, b.Metrics...)
	return out
}

func (b Batch) Empty() bool {
	return len(b.Originals) == 0 && len(b.Segmented) == 0
}

// Rows is the number of comparison rows: the longest image sequence.
func (b Batch) Rows() int {
	return max(len(b.Originals), len(b.Segmented))
}

// Pairs is the number of slots with both an original and a segmented image.
func (b Batch) Pairs() int {
	return min(len(b.Originals), len(b.Segmented))
}

type Totals struct {
	Originals int `json:"originals"`
	Segmented int `json:"segmented"`
	Metrics   int `json:"metrics"`
}

func (b Batch) Totals() Totals {
	return Totals{
		Originals: len(b.Originals),
		Segmented: len(b.Segmented),
		Metrics:   len(b.Metrics),
	}
}
