package models

// StitchRequest asks for frames, given in scroll order, to be stitched into one image.
// Unset optional fields fall back to the server's configured defaults.
type StitchRequest struct {
	URLs           []string `json:"urls" binding:"required,min=1"`
	HeaderHeight   *int     `json:"header_height,omitempty"`
	FooterHeight   *int     `json:"footer_height,omitempty"`
	XColumns       []int    `json:"x_columns,omitempty"`
	Threshold      *int     `json:"threshold,omitempty"`
	OutputFormat   string   `json:"output_format,omitempty"`
	Workers        *int     `json:"workers,omitempty"`
	MaxShift       *int     `json:"max_shift,omitempty"`
	DedupeDistance *int     `json:"dedupe_distance,omitempty"`
	Strategy       string   `json:"strategy,omitempty"`
	Confidence     bool     `json:"confidence,omitempty"`

	// Upload stores the result in blob storage and returns a JSON job instead of the image
	Upload bool `json:"upload,omitempty"`
}

// FrameAlignment describes where one frame landed relative to the previous one
type FrameAlignment struct {
	Index      int     `json:"index"`
	Shift      int     `json:"shift"`
	Deviation  int     `json:"deviation"`
	Confidence float64 `json:"confidence,omitempty"`
}

// StitchResponse summarises a finished stitch
type StitchResponse struct {
	JobID             string           `json:"job_id"`
	Timestamp         string           `json:"timestamp"`
	ProcessingTimeSec float64          `json:"processing_time_sec"`
	FrameCount        int              `json:"frame_count"`
	DroppedFrames     []int            `json:"dropped_frames,omitempty"`
	Width             int              `json:"width"`
	Height            int              `json:"height"`
	Alignments        []FrameAlignment `json:"alignments"`
	OutputFormat      string           `json:"output_format"`
	ContentType       string           `json:"content_type"`
	OutputURL         string           `json:"output_url,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Type       string `json:"type,omitempty"`
	ImageIndex *int   `json:"image_index,omitempty"`
}
