package partition

import (
	"github.com/genostore/genostore/entity"
)

const (
	// maxPartCount is the hard ceiling multipart stores impose on a session.
	maxPartCount = 10000
	// minPartSize keeps tiny configured part sizes from exploding the part
	// count on large genomic files.
	minPartSize = 20 * 1024 * 1024
)

// Calculator partitions a byte range into parts of a configured size. Pure
// arithmetic, no I/O.
type Calculator struct {
	partSize int64
}

func NewCalculator(partSize int64) *Calculator {
	if partSize < minPartSize {
		partSize = minPartSize
	}
	return &Calculator{partSize: partSize}
}

// Divide tiles [offset, offset+length) with parts of at most the configured
// size. Part numbers are assigned densely from 1 in ascending offset order;
// the final part carries the remainder when length is not a multiple of the
// part size.
func (c *Calculator) Divide(offset int64, length int64) []*entity.Part {
	partSize := c.partSize
	if grown := length/maxPartCount + 1; grown > partSize {
		partSize = grown
	}
	parts := make([]*entity.Part, 0, int(length/partSize)+1)
	var done int64
	for i := 1; done < length; i++ {
		sz := partSize
		if rest := length - done; rest < sz {
			sz = rest
		}
		parts = append(parts, &entity.Part{
			PartNumber: i,
			PartSize:   sz,
			Offset:     offset + done,
		})
		done += sz
	}
	return parts
}

// Specify returns a single part spanning the whole requested range, for
// callers that want one URL regardless of size.
func (c *Calculator) Specify(offset int64, length int64) []*entity.Part {
	return []*entity.Part{
		{
			PartNumber: 1,
			PartSize:   length,
			Offset:     offset,
		},
	}
}

// PartSize exposes the effective configured part size.
func (c *Calculator) PartSize() int64 {
	return c.partSize
}
