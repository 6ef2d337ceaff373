package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEntity(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entities/obj-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"obj-1","gnosId":"STUDY-A","fileName":"sample.bam","projectCode":"STUDY-A","access":"controlled"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer svr.Close()

	cli, err := New(svr.URL)
	assert.NoError(t, err)

	ent, err := cli.GetEntity(context.Background(), "obj-1")
	assert.NoError(t, err)
	assert.Equal(t, "obj-1", ent.Id)
	assert.Equal(t, "STUDY-A", ent.ProjectCode)
	assert.False(t, ent.IsOpenAccess())

	_, err = cli.GetEntity(context.Background(), "obj-missing")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestIsOpenAccess(t *testing.T) {
	assert.True(t, (&Entity{Access: "open"}).IsOpenAccess())
	assert.True(t, (&Entity{Access: "OPEN"}).IsOpenAccess())
	assert.False(t, (&Entity{Access: "controlled"}).IsOpenAccess())
	assert.False(t, (&Entity{Access: ""}).IsOpenAccess())
}
