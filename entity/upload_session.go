package entity

type CreateUploadSessionRequest struct {
	ObjectId  string
	UploadId  string
	ObjectKey string
	FileSize  int64
	PartCount int32
	ObjectMd5 string
}

type CreateUploadSessionResponse struct {
}

type GetUploadSessionRequest struct {
	ObjectId string
}

type UploadSessionItem struct {
	ObjectId  string `json:"object_id"`
	UploadId  string `json:"upload_id"`
	ObjectKey string `json:"object_key"`
	FileSize  int64  `json:"file_size"`
	PartCount int32  `json:"part_count"`
	ObjectMd5 string `json:"object_md5"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}

type GetUploadSessionResponse struct {
	Item *UploadSessionItem
}

type DeleteUploadSessionRequest struct {
	ObjectId string
}

type DeleteUploadSessionResponse struct {
}
