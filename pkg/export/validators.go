package export

// ExportPayload names the folder by share URL or, for backends whose ids
// aren't URL friendly, by id.
type ExportPayload struct {
	FolderURL        string `json:"folder_url" mod:"trim" validate:"required_without=FolderID,folder_ref"`
	FolderID         string `json:"folder_id" mod:"trim"`
	IncludeSummaries bool   `json:"include_summaries"`
}
