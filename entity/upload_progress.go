package entity

// UploadProgress enumerates the part layout of an in-progress upload with
// completed parts carrying their accepted checksums, letting a restarted
// client skip verified bytes.
type UploadProgress struct {
	ObjectId string  `json:"object_id"`
	UploadId string  `json:"upload_id"`
	Parts    []*Part `json:"parts"`
}
