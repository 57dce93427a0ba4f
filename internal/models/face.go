package models

// FaceObservation is one face detection at a sampled frame time. CenterX
// and CenterY are the face bounding-box center in source-frame pixels.
// A frame may yield zero, one, or several observations.
type FaceObservation struct {
	FrameTime  float64 `json:"frame_time"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Confidence float64 `json:"confidence"`
}

// VideoInfo describes the source frame geometry the planner and renderer
// work against.
type VideoInfo struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
}
