package render

import (
	"testing"

	"segviewer/internal/domain"
)

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		name string
		s    domain.Score
		kind MetricKind
		want string
	}{
		{"percentage", domain.NewScore(0.8734), Percentage, "87.3%"},
		{"decimal", domain.NewScore(0.71234), Decimal, "0.712"},
		{"zero", domain.NewScore(0), Decimal, "0.000"},
		{"one percent", domain.NewScore(1), Percentage, "100.0%"},
		{"invalid decimal", domain.Score{}, Decimal, "N/A"},
		{"invalid percentage", domain.Score{}, Percentage, "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMetric(tt.s, tt.kind); got != tt.want {
				t.Fatalf("FormatMetric = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"/imagens/original/a.png":   "a.png",
		`imagens\segmentado\b.png`:  "b.png",
		"plain.png":                 "plain.png",
		"/imagens/original/":        "file",
		"":                          "file",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModalHrefNormalizesBackslashes(t *testing.T) {
	got := ModalHref(`http://h/imagens\original\a.png`, "Original image 1: a.png")
	want := "/view?caption=Original+image+1%3A+a.png&src=http%3A%2F%2Fh%2Fimagens%2Foriginal%2Fa.png"
	if got != want {
		t.Fatalf("ModalHref = %q, want %q", got, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	v := Build(domain.NewBatch(), nil)
	if !v.Empty || len(v.Rows) != 0 || v.ValidPairs != 0 {
		t.Fatalf("expected empty view, got %+v", v)
	}
}

func TestBuildOriginalsWithoutSegmented(t *testing.T) {
	b := domain.Batch{Originals: []string{"/o/a.png", "/o/b.png"}, Segmented: []string{}, Metrics: []domain.Metric{}}
	v := Build(b, nil)
	if v.Empty {
		t.Fatalf("view should not be empty")
	}
	if len(v.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(v.Rows))
	}
	for i, r := range v.Rows {
		if !r.Original.Available {
			t.Errorf("row %d: original should be available", i)
		}
		if r.Segmented.Available {
			t.Errorf("row %d: segmented should be a placeholder", i)
		}
		if r.Metrics != nil || r.MetricsMissing {
			t.Errorf("row %d: expected no metrics card, got %+v", i, r)
		}
	}
	if v.Stats != (Stats{Originals: 2, Segmented: 0, Possible: 0}) {
		t.Fatalf("unexpected stats %+v", v.Stats)
	}
	if v.ValidPairs != 0 {
		t.Fatalf("expected no valid pairs, got %d", v.ValidPairs)
	}
}

func TestBuildMetricsRule(t *testing.T) {
	b := domain.Batch{
		Originals: []string{"o1", "o2", "o3", "o4"},
		Segmented: []string{"s1", "s2", "s3"},
		Metrics: []domain.Metric{
			{Similarity: domain.NewScore(0.5), IoU: domain.NewScore(0.25), Dice: domain.NewScore(0.4)},
		},
	}
	v := Build(b, func(p string) string { return "http://backend" + p })
	if len(v.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(v.Rows))
	}

	first := v.Rows[0]
	if first.Metrics == nil {
		t.Fatalf("row 1 should carry a metrics card")
	}
	want := MetricsCard{Similarity: "50.0%", IoU: "0.250", Dice: "0.400", Precision: "N/A"}
	if *first.Metrics != want {
		t.Fatalf("metrics card = %+v, want %+v", *first.Metrics, want)
	}
	for i := 1; i < 3; i++ {
		if v.Rows[i].Metrics != nil || !v.Rows[i].MetricsMissing {
			t.Errorf("row %d should carry the not-computed card", i+1)
		}
	}
	last := v.Rows[3]
	if last.Metrics != nil || last.MetricsMissing {
		t.Errorf("row 4 has no pair and should carry no card")
	}
	if last.Segmented.Available {
		t.Errorf("row 4 segmented should be a placeholder")
	}
	if v.ValidPairs != 3 || v.Stats.Possible != 3 {
		t.Fatalf("expected 3 pairs, got valid=%d possible=%d", v.ValidPairs, v.Stats.Possible)
	}
}

func TestBuildMetricsBeyondPairsIgnored(t *testing.T) {
	m := domain.Metric{IoU: domain.NewScore(0.9)}
	b := domain.Batch{Originals: []string{"o1"}, Segmented: []string{}, Metrics: []domain.Metric{m, m}}
	v := Build(b, nil)
	if len(v.Rows) != 1 || v.Rows[0].Metrics != nil || v.Rows[0].MetricsMissing {
		t.Fatalf("metrics without a pair must not render, got %+v", v.Rows)
	}
}

func TestBuildCellFields(t *testing.T) {
	b := domain.Batch{Originals: []string{`\imagens\original\scan 1.png`}, Segmented: []string{"/imagens/segmentado/m1.png"}}
	v := Build(b, func(p string) string { return "http://backend:8000" + p })
	c := v.Rows[0].Original
	if c.URL != "http://backend:8000/imagens/original/scan 1.png" {
		t.Fatalf("unexpected url %q", c.URL)
	}
	if c.Name != "scan 1.png" {
		t.Fatalf("unexpected name %q", c.Name)
	}
	if c.Alt != "Original image 1" || c.Caption != "Original image 1: scan 1.png" {
		t.Fatalf("unexpected labels alt=%q caption=%q", c.Alt, c.Caption)
	}
	s := v.Rows[0].Segmented
	if s.Title != "Segmented result" || s.Caption != "Segmented result 1: m1.png" {
		t.Fatalf("unexpected segmented cell %+v", s)
	}
}
