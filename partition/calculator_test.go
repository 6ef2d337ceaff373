package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivideTilesRange(t *testing.T) {
	c := NewCalculator(20 * 1024 * 1024)
	length := int64(50*1024*1024 + 123)
	parts := c.Divide(0, length)
	assert.Len(t, parts, 3)
	var total int64
	for i, p := range parts {
		assert.Equal(t, i+1, p.PartNumber)
		assert.Equal(t, total, p.Offset)
		total += p.PartSize
	}
	assert.Equal(t, length, total)
	assert.Equal(t, int64(123+10*1024*1024), parts[2].PartSize)
}

func TestDivideRespectsOffset(t *testing.T) {
	c := NewCalculator(20 * 1024 * 1024)
	parts := c.Divide(1000, 40*1024*1024)
	assert.Len(t, parts, 2)
	assert.Equal(t, int64(1000), parts[0].Offset)
	assert.Equal(t, int64(1000+20*1024*1024), parts[1].Offset)
}

func TestDivideFloorsTinyPartSize(t *testing.T) {
	c := NewCalculator(1)
	assert.Equal(t, int64(20*1024*1024), c.PartSize())
	parts := c.Divide(0, 30*1024*1024)
	assert.Len(t, parts, 2)
}

func TestDivideGrowsPartSizeForHugeObjects(t *testing.T) {
	c := NewCalculator(20 * 1024 * 1024)
	// A length that would need more than 10000 parts at the configured size.
	length := int64(20*1024*1024) * 15000
	parts := c.Divide(0, length)
	assert.LessOrEqual(t, len(parts), 10000)
	var total int64
	for _, p := range parts {
		total += p.PartSize
	}
	assert.Equal(t, length, total)
}

func TestDivideEmptyLength(t *testing.T) {
	c := NewCalculator(20 * 1024 * 1024)
	assert.Empty(t, c.Divide(0, 0))
}

func TestSpecifySinglePart(t *testing.T) {
	c := NewCalculator(20 * 1024 * 1024)
	parts := c.Specify(500, 12345)
	assert.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].PartNumber)
	assert.Equal(t, int64(500), parts[0].Offset)
	assert.Equal(t, int64(12345), parts[0].PartSize)
}
