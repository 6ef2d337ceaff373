package entity

type SaveUploadPartRequest struct {
	ObjectId   string
	UploadId   string
	PartNumber int32
	SourceMd5  string
	Etag       string
}

type SaveUploadPartResponse struct {
}

type GetUploadPartRequest struct {
	ObjectId   string
	UploadId   string
	PartNumber []int32
}

type UploadPartItem struct {
	ObjectId   string `json:"object_id"`
	UploadId   string `json:"upload_id"`
	PartNumber int32  `json:"part_number"`
	SourceMd5  string `json:"source_md5"`
	Etag       string `json:"etag"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}

type GetUploadPartResponse struct {
	List []*UploadPartItem
}

type ListUploadPartRequest struct {
	ObjectId string
	UploadId string
}

type ListUploadPartResponse struct {
	List []*UploadPartItem
}

type DeleteUploadPartRequest struct {
	ObjectId string
	UploadId string
	// PartNumber limits the delete to specific parts; empty removes every part
	// record of the session.
	PartNumber []int32
}

type DeleteUploadPartResponse struct {
}
