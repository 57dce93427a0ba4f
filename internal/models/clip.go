package models

// ClipInterval is a final, non-overlapping, duration-bounded selected
// highlight produced by the reconciler. Rank is the selection order
// (1 = highest score); the interval list itself is ordered chronologically.
type ClipInterval struct {
	Start        float64    `json:"start"`
	End          float64    `json:"end"`
	Rank         int        `json:"rank"`
	Headline     string     `json:"headline"`
	EmotionalTag string     `json:"emotional_tag"`
	Source       SpanSource `json:"source"`
	Score        float64    `json:"score"`
	Rationale    string     `json:"rationale,omitempty"`
}

// Duration returns the interval length in seconds.
func (c ClipInterval) Duration() float64 {
	return c.End - c.Start
}

// Overlaps reports whether two intervals share any time, treating ranges
// within eps of touching as adjacent rather than overlapping.
func (c ClipInterval) Overlaps(other ClipInterval, eps float64) bool {
	return c.Start < other.End-eps && other.Start < c.End-eps
}

// CropPoint is the crop-window center for a single output frame.
type CropPoint struct {
	FrameTime float64 `json:"frame_time"`
	CenterX   float64 `json:"center_x"`
	CenterY   float64 `json:"center_y"`
}

// CropPath is the per-output-frame sequence of crop centers used to
// reframe source video into the target aspect ratio. Monotonic in
// FrameTime, one entry per output frame.
type CropPath []CropPoint

// Summary condenses a crop path for metadata export, where per-frame
// detail would be noise.
type CropPathSummary struct {
	Frames   int     `json:"frames"`
	MinX     float64 `json:"min_x"`
	MaxX     float64 `json:"max_x"`
	MeanX    float64 `json:"mean_x"`
	MinY     float64 `json:"min_y"`
	MaxY     float64 `json:"max_y"`
	MeanY    float64 `json:"mean_y"`
	Fallback bool    `json:"fallback"` // true when the fixed-center fallback was used
}

// Summarize computes the metadata summary for a crop path.
func (p CropPath) Summarize(fallback bool) CropPathSummary {
	sum := CropPathSummary{Frames: len(p), Fallback: fallback}
	if len(p) == 0 {
		return sum
	}
	sum.MinX, sum.MaxX = p[0].CenterX, p[0].CenterX
	sum.MinY, sum.MaxY = p[0].CenterY, p[0].CenterY
	var totX, totY float64
	for _, pt := range p {
		if pt.CenterX < sum.MinX {
			sum.MinX = pt.CenterX
		}
		if pt.CenterX > sum.MaxX {
			sum.MaxX = pt.CenterX
		}
		if pt.CenterY < sum.MinY {
			sum.MinY = pt.CenterY
		}
		if pt.CenterY > sum.MaxY {
			sum.MaxY = pt.CenterY
		}
		totX += pt.CenterX
		totY += pt.CenterY
	}
	sum.MeanX = totX / float64(len(p))
	sum.MeanY = totY / float64(len(p))
	return sum
}

// ClipArtifact is the rendered output for one interval. Owned by the job
// record; read-only after creation.
type ClipArtifact struct {
	Interval   ClipInterval      `json:"interval"`
	CropPath   CropPath          `json:"-"`
	OutputPath string            `json:"output_path"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
