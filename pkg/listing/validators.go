package listing

// ListPayload names the folder by share URL or by id. The folder reference
// isn't validated by the binder: a bad one is reported in ErrorResponse.
type ListPayload struct {
	FolderURL         string `json:"folder_url" mod:"trim"`
	FolderID          string `json:"folder_id" mod:"trim"`
	GenerateSummaries bool   `json:"generate_summaries"`
}

type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	MimeType    string  `json:"mimeType"`
	Size        int64   `json:"size"`
	WebViewLink string  `json:"webViewLink"`
	ParentID    string  `json:"parentId,omitempty"`
	Summary     *string `json:"summary,omitempty"`
}

type ListResponse struct {
	FolderID           string  `json:"folderId"`
	FolderName         string  `json:"folderName"`
	Items              []*Item `json:"items"`
	SummariesEnabled   bool    `json:"summaries_enabled"`
	SummariesAvailable bool    `json:"summaries_available"`
}

// ErrorResponse is sent with status 200; the page shows Error as is.
type ErrorResponse struct {
	Error string `json:"error"`
}
