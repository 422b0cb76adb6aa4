package models

// File type values assigned at intake time. FileTypeUnknown is used only
// to reject a file; it is never persisted to the catalog.
const (
	TypeSpreadsheet = "spreadsheet"
	TypeOFX         = "ofx"
	TypePDF         = "pdf"
	TypeUnknown     = "unknown"
)

// FileRecord is one catalog row per accepted upload.
type FileRecord struct {
	ID           int64    `json:"id"`
	StoredName   string   `json:"filename"`
	OriginalName string   `json:"original_name"`
	FileType     string   `json:"file_type"`
	FileSize     int64    `json:"file_size"`
	FileHash     string   `json:"file_hash"`
	UploadDate   string   `json:"upload_date"`
	Status       string   `json:"status"`
	Notes        string   `json:"notes"`
	Tags         []string `json:"tags,omitempty"`
}

// Stats summarizes the catalog contents.
type Stats struct {
	TotalFiles int64            `json:"total_files"`
	TotalSize  int64            `json:"total_size"`
	ByType     map[string]int64 `json:"by_type"`
}
