package entity

// RecipeDocument is one input file for a pipeline run.
type RecipeDocument struct {
	Content     []byte
	ContentType string
	Filename    string
	Contributor string

	SourcePath string
	SHA256     string
}

// ExtractedText is the raw text produced by the dispatcher.
type ExtractedText struct {
	Text       string   `json:"text"`
	Filename   string   `json:"filename"`
	Length     int      `json:"length"`
	Format     string   `json:"format"`
	Method     string   `json:"method"`
	Pages      int      `json:"pages,omitempty"`
	Confidence float32  `json:"confidence,omitempty"` // OCR only; 0 when unknown
	Warnings   []string `json:"warnings,omitempty"`
}
