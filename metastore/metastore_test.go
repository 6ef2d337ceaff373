package metastore

import (
	"context"
	"testing"

	"github.com/genostore/genostore/backend/mem"
	"github.com/genostore/genostore/entity"

	"github.com/stretchr/testify/assert"
)

func testSpec(objectId string) *entity.ObjectSpecification {
	return &entity.ObjectSpecification{
		ObjectKey:  "data/" + objectId,
		ObjectId:   objectId,
		ObjectSize: 100,
		ObjectMd5:  "whole",
		Parts: []*entity.Part{
			{PartNumber: 1, PartSize: 60, Offset: 0, Md5: "m1", SourceMd5: "m1"},
			{PartNumber: 2, PartSize: 40, Offset: 60, Md5: "m2", SourceMd5: "m2"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	bk := mem.New()
	st := New(bk, "data")

	_, err := st.Load(ctx, "obj-1")
	assert.ErrorIs(t, err, ErrObjectNotRegistered)

	assert.NoError(t, st.Save(ctx, testSpec("obj-1")))
	spec, err := st.Load(ctx, "obj-1")
	assert.NoError(t, err)
	assert.Equal(t, "obj-1", spec.ObjectId)
	assert.Equal(t, int64(100), spec.ObjectSize)
	assert.Len(t, spec.Parts, 2)
	assert.False(t, spec.IsRelocated)
}

func TestLoadLegacyKeySetsRelocated(t *testing.T) {
	ctx := context.Background()
	bk := mem.New()
	// write at the pre-partitioning layout only
	legacy := New(bk, "")
	assert.NoError(t, legacy.Save(ctx, testSpec("obj-1")))

	st := New(bk, "data")
	spec, err := st.Load(ctx, "obj-1")
	assert.NoError(t, err)
	assert.True(t, spec.IsRelocated)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	bk := mem.New()
	st := New(bk, "data")

	ok, err := st.Exists(ctx, "obj-1")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, st.Save(ctx, testSpec("obj-1")))
	ok, err = st.Exists(ctx, "obj-1")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestExistsLegacyFallback(t *testing.T) {
	ctx := context.Background()
	bk := mem.New()
	legacy := New(bk, "")
	assert.NoError(t, legacy.Save(ctx, testSpec("obj-1")))

	st := New(bk, "data")
	ok, err := st.Exists(ctx, "obj-1")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestObjectKey(t *testing.T) {
	bk := mem.New()
	assert.Equal(t, "data/obj-1", New(bk, "data").ObjectKey("obj-1"))
	assert.Equal(t, "obj-1", New(bk, "").ObjectKey("obj-1"))
}
