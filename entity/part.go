package entity

import (
	"sort"
	"strings"
)

// Part is one contiguous byte range of an object being transferred. The part
// list of a specification tiles the object with no gaps or overlaps; transfer
// order across parts is arbitrary, only PartNumber ordering is canonical for
// reassembly.
type Part struct {
	PartNumber int    `json:"part_number"`
	PartSize   int64  `json:"part_size"`
	Offset     int64  `json:"offset"`
	URL        string `json:"url,omitempty"`
	Md5        string `json:"md5,omitempty"`        // checksum acknowledged by the store once the part is accepted
	Etag       string `json:"etag,omitempty"`       // store-side identifier of the accepted part
	SourceMd5  string `json:"source_md5,omitempty"` // checksum of the source bytes, computed before transfer
}

// IsCompleted reports whether the store has accepted this part. A part must
// never be treated as completed before its returned checksum was recorded.
func (p *Part) IsCompleted() bool {
	return len(p.Md5) != 0
}

func (p *Part) IsMissingSourceMd5() bool {
	return len(strings.TrimSpace(p.SourceMd5)) == 0
}

// HasFailedChecksum reports whether the accepted checksum differs from the
// source checksum. Without a source checksum the comparison is impossible and
// the part is assumed intact.
func (p *Part) HasFailedChecksum() bool {
	if p.IsMissingSourceMd5() {
		return false
	}
	return p.SourceMd5 != p.Md5
}

// ExpectedMd5 is the checksum a downloaded part body must match: the source
// checksum when one was recorded, otherwise the store-acknowledged one. Empty
// means the part cannot be verified.
func (p *Part) ExpectedMd5() string {
	if !p.IsMissingSourceMd5() {
		return p.SourceMd5
	}
	return p.Md5
}

func SortPartsByNumber(parts []*Part) {
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].PartNumber < parts[j].PartNumber
	})
}
