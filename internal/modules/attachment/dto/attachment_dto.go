package dto

type UploadAttachmentResponse struct {
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}
