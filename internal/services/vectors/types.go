package vectors

// BulkDeleteCap is the most vectors one bulk delete may target, matching the
// backend's own limit so oversized requests fail before the network
const BulkDeleteCap = 100

// DefaultPageSize matches the backend default for the vector list
const DefaultPageSize = 50

// Vector is one FAQ entry of the knowledge base. The embedding itself never
// leaves the backend; the list endpoint excludes it.
type Vector struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	ProcedureName  string `json:"procedure_name"`
	YouTubeVideoID string `json:"youtube_video_id"`
	YouTubeTitle   string `json:"youtube_title"`
	YouTubeURL     string `json:"youtube_url"`
	CreatedAt      string `json:"created_at"`
}

// Page is one page of the vector list
type Page struct {
	Items    []Vector `json:"items"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// BulkDeleteResponse reports what a bulk delete removed
type BulkDeleteResponse struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids"`
}

// YouTubeSource is one registered video the backend mines FAQs from. Status
// walks pending, transcript_fetched, refined, faq_generated, embedded; videos
// without a transcript end up skipped.
type YouTubeSource struct {
	ID       string `json:"id"`
	VideoID  string `json:"video_id"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Status   string `json:"status"`
	FAQCount int    `json:"faq_count"`
	Created  string `json:"created_at"`
}

// ProcessResult is the per-video outcome of a processing run
type ProcessResult struct {
	VideoID  string `json:"video_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	FAQCount int    `json:"faq_count,omitempty"`
}

// ProcessResponse summarizes a processing run over all pending videos
type ProcessResponse struct {
	Processed int             `json:"processed"`
	Results   []ProcessResult `json:"results"`
}
