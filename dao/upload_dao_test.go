package dao

import (
	"context"
	"os"
	"testing"

	"github.com/genostore/genostore/db"
	"github.com/genostore/genostore/entity"

	"github.com/stretchr/testify/assert"
)

var (
	dbfile     = "/tmp/sqlite_upload_dao_test.db"
	sessionDao IUploadSessionDao
	partDao    IUploadPartDao
)

func setup() {
	tearDown()
	if err := db.InitDB(dbfile); err != nil {
		panic(err)
	}
	sessionDao = NewUploadSessionDao(db.GetClient())
	partDao = NewUploadPartDao(db.GetClient())
}

func tearDown() {
	_ = os.Remove(dbfile)
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	tearDown()
	if code != 0 {
		os.Exit(code)
	}
}

func TestUploadSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	_, err := sessionDao.CreateUploadSession(ctx, &entity.CreateUploadSessionRequest{
		ObjectId:  "obj-session",
		UploadId:  "upl-1",
		ObjectKey: "data/obj-session",
		FileSize:  1234,
		PartCount: 2,
		ObjectMd5: "md5",
	})
	assert.NoError(t, err)

	rsp, err := sessionDao.GetUploadSession(ctx, &entity.GetUploadSessionRequest{ObjectId: "obj-session"})
	assert.NoError(t, err)
	assert.NotNil(t, rsp.Item)
	assert.Equal(t, "upl-1", rsp.Item.UploadId)
	assert.Equal(t, int64(1234), rsp.Item.FileSize)
	assert.Equal(t, int32(2), rsp.Item.PartCount)

	// a new session for the same object replaces the old one
	_, err = sessionDao.CreateUploadSession(ctx, &entity.CreateUploadSessionRequest{
		ObjectId:  "obj-session",
		UploadId:  "upl-2",
		ObjectKey: "data/obj-session",
		FileSize:  1234,
		PartCount: 2,
	})
	assert.NoError(t, err)
	rsp, err = sessionDao.GetUploadSession(ctx, &entity.GetUploadSessionRequest{ObjectId: "obj-session"})
	assert.NoError(t, err)
	assert.Equal(t, "upl-2", rsp.Item.UploadId)

	_, err = sessionDao.DeleteUploadSession(ctx, &entity.DeleteUploadSessionRequest{ObjectId: "obj-session"})
	assert.NoError(t, err)
	rsp, err = sessionDao.GetUploadSession(ctx, &entity.GetUploadSessionRequest{ObjectId: "obj-session"})
	assert.NoError(t, err)
	assert.Nil(t, rsp.Item)
}

func TestUploadPartLifecycle(t *testing.T) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := partDao.SaveUploadPart(ctx, &entity.SaveUploadPartRequest{
			ObjectId:   "obj-part",
			UploadId:   "upl-1",
			PartNumber: int32(i),
			SourceMd5:  "md5",
			Etag:       "etag",
		})
		assert.NoError(t, err)
	}

	lst, err := partDao.ListUploadPart(ctx, &entity.ListUploadPartRequest{ObjectId: "obj-part", UploadId: "upl-1"})
	assert.NoError(t, err)
	assert.Len(t, lst.List, 3)
	assert.Equal(t, int32(1), lst.List[0].PartNumber)

	// re-saving a part replaces its record
	_, err = partDao.SaveUploadPart(ctx, &entity.SaveUploadPartRequest{
		ObjectId:   "obj-part",
		UploadId:   "upl-1",
		PartNumber: 2,
		SourceMd5:  "md5-new",
		Etag:       "etag-new",
	})
	assert.NoError(t, err)
	got, err := partDao.GetUploadPart(ctx, &entity.GetUploadPartRequest{
		ObjectId:   "obj-part",
		UploadId:   "upl-1",
		PartNumber: []int32{2},
	})
	assert.NoError(t, err)
	assert.Len(t, got.List, 1)
	assert.Equal(t, "etag-new", got.List[0].Etag)

	// delete one part, the rest stay
	_, err = partDao.DeleteUploadPart(ctx, &entity.DeleteUploadPartRequest{
		ObjectId:   "obj-part",
		UploadId:   "upl-1",
		PartNumber: []int32{2},
	})
	assert.NoError(t, err)
	lst, err = partDao.ListUploadPart(ctx, &entity.ListUploadPartRequest{ObjectId: "obj-part", UploadId: "upl-1"})
	assert.NoError(t, err)
	assert.Len(t, lst.List, 2)

	// delete all
	_, err = partDao.DeleteUploadPart(ctx, &entity.DeleteUploadPartRequest{ObjectId: "obj-part", UploadId: "upl-1"})
	assert.NoError(t, err)
	lst, err = partDao.ListUploadPart(ctx, &entity.ListUploadPartRequest{ObjectId: "obj-part", UploadId: "upl-1"})
	assert.NoError(t, err)
	assert.Empty(t, lst.List)
}
