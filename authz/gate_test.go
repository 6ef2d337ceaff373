package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/genostore/genostore/metadata"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

type fakeMetadata struct {
	entities map[string]*metadata.Entity
	err      error
}

func (f *fakeMetadata) GetEntity(ctx context.Context, objectId string) (*metadata.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	ent, ok := f.entities[objectId]
	if !ok {
		return nil, metadata.ErrEntityNotFound
	}
	return ent, nil
}

func newTestGate() *Gate {
	meta := &fakeMetadata{
		entities: map[string]*metadata.Entity{
			"obj-open":       {Id: "obj-open", ProjectCode: "STUDY-A", Access: "open"},
			"obj-controlled": {Id: "obj-controlled", ProjectCode: "STUDY-A", Access: "controlled"},
		},
	}
	return NewGate(&Config{
		Secret:         testSecret,
		ScopePrefix:    "storage",
		UploadSuffix:   "WRITE",
		DownloadSuffix: "READ",
	}, meta)
}

func signToken(t *testing.T, scope interface{}) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": scope,
	}).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func TestParseScopes(t *testing.T) {
	gate := newTestGate()

	scopes, err := gate.ParseScopes(signToken(t, "storage.WRITE storage.READ"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"storage.WRITE", "storage.READ"}, scopes)

	scopes, err = gate.ParseScopes(signToken(t, []interface{}{"storage.STUDY-A.WRITE"}))
	assert.NoError(t, err)
	assert.Equal(t, []string{"storage.STUDY-A.WRITE"}, scopes)

	_, err = gate.ParseScopes("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = gate.ParseScopes("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseScopesRejectsWrongKey(t *testing.T) {
	gate := newTestGate()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "storage.WRITE",
	}).SignedString([]byte("other-secret"))
	assert.NoError(t, err)
	_, err = gate.ParseScopes(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorizeUpload(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()

	// system scope clears any object
	assert.NoError(t, gate.AuthorizeUpload(ctx, signToken(t, "storage.WRITE"), "obj-controlled"))
	// matching study scope
	assert.NoError(t, gate.AuthorizeUpload(ctx, signToken(t, "storage.STUDY-A.WRITE"), "obj-controlled"))
	// wrong study
	err := gate.AuthorizeUpload(ctx, signToken(t, "storage.STUDY-B.WRITE"), "obj-controlled")
	assert.ErrorIs(t, err, ErrAccessDenied)
	// download scope does not grant upload
	err = gate.AuthorizeUpload(ctx, signToken(t, "storage.READ"), "obj-controlled")
	assert.ErrorIs(t, err, ErrAccessDenied)
	// uploads always need a token, even for open objects
	err = gate.AuthorizeUpload(ctx, "", "obj-open")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorizeDownload(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()

	// open access needs no token at all
	assert.NoError(t, gate.AuthorizeDownload(ctx, "", "obj-open"))
	// controlled access needs a matching scope
	err := gate.AuthorizeDownload(ctx, "", "obj-controlled")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NoError(t, gate.AuthorizeDownload(ctx, signToken(t, "storage.READ"), "obj-controlled"))
	assert.NoError(t, gate.AuthorizeDownload(ctx, signToken(t, "storage.STUDY-A.READ"), "obj-controlled"))
	err = gate.AuthorizeDownload(ctx, signToken(t, "storage.STUDY-B.READ"), "obj-controlled")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestAuthorizeUnknownObject(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate()
	// study scopes need the object's study, so the registry miss surfaces
	err := gate.AuthorizeUpload(ctx, signToken(t, "storage.STUDY-A.WRITE"), "obj-missing")
	assert.ErrorIs(t, err, metadata.ErrEntityNotFound)
	// the system scope clears unknown objects without a registry lookup
	assert.NoError(t, gate.AuthorizeUpload(ctx, signToken(t, "storage.WRITE"), "obj-missing"))
}

func TestSystemScopeSkipsRegistry(t *testing.T) {
	ctx := context.Background()
	meta := &fakeMetadata{err: fmt.Errorf("registry unreachable")}
	gate := NewGate(&Config{
		Secret:         testSecret,
		ScopePrefix:    "storage",
		UploadSuffix:   "WRITE",
		DownloadSuffix: "READ",
	}, meta)

	// a system-scoped caller is never blocked by the registry being down
	assert.NoError(t, gate.AuthorizeUpload(ctx, signToken(t, "storage.WRITE"), "obj-1"))
	assert.NoError(t, gate.AuthorizeDownload(ctx, signToken(t, "storage.READ"), "obj-1"))
	// every other caller still needs the registry
	err := gate.AuthorizeUpload(ctx, signToken(t, "storage.STUDY-A.WRITE"), "obj-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}
