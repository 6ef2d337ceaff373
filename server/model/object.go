package model

import "github.com/genostore/genostore/entity"

type InitiateUploadRequest struct {
	FileSize  int64  `form:"file_size" binding:"required"`
	Md5       string `form:"md5"`
	Overwrite bool   `form:"overwrite"`
}

type UploadProgressRequest struct {
	FileSize int64 `form:"file_size" binding:"required"`
}

type FinalizePartRequest struct {
	PartNumber *int   `form:"part_number" binding:"required"`
	Md5        string `form:"md5"`
	Etag       string `form:"etag"`
}

type FinalizePartResponse struct {
}

type DeletePartRequest struct {
	PartNumber *int `form:"part_number" binding:"required"`
}

type DeletePartResponse struct {
}

type FinalizeUploadResponse struct {
}

type RecoverUploadRequest struct {
	FileSize int64 `form:"file_size" binding:"required"`
}

type CancelUploadResponse struct {
}

type ResolveDownloadRequest struct {
	Offset int64 `form:"offset"`
	// Length omitted or negative means through end of object.
	Length   *int64 `form:"length"`
	External bool   `form:"external"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

type ObjectExistsResponse struct {
	Exist bool `json:"exist"`
}

type ObjectInfoResponse struct {
	Spec      *entity.ObjectSpecification `json:"spec"`
	Relocated bool                        `json:"relocated"`
}
