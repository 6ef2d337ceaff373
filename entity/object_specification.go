package entity

// ObjectSpecification is the full description of one transferable object,
// issued by the server on initiate/resolve and persisted (minus live URLs) as
// the object metadata document once the upload finalizes.
type ObjectSpecification struct {
	ObjectKey  string  `json:"object_key"`
	ObjectId   string  `json:"object_id"`
	UploadId   string  `json:"upload_id,omitempty"` // multipart session id, uploads only
	Parts      []*Part `json:"parts"`
	ObjectSize int64   `json:"object_size"`
	ObjectMd5  string  `json:"object_md5,omitempty"`
	// IsRelocated marks metadata found at the legacy key layout instead of the
	// primary one. Never serialized, only meaningful in-process.
	IsRelocated bool `json:"-"`
}

// HasPartChecksums reports whether at least one part carries a source checksum.
func (s *ObjectSpecification) HasPartChecksums() bool {
	for _, p := range s.Parts {
		if !p.IsMissingSourceMd5() {
			return true
		}
	}
	return false
}

// HasMixedChecksums reports a partially checksummed part list. Tolerated, but
// worth a warning at load time.
func (s *ObjectSpecification) HasMixedChecksums() bool {
	present := 0
	for _, p := range s.Parts {
		if !p.IsMissingSourceMd5() {
			present++
		}
	}
	return present > 0 && present < len(s.Parts)
}
