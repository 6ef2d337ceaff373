// Package metadata talks to the external metadata registry that owns the
// object-id to study mapping. The registry is the source of truth for access
// class (open vs controlled) and for which study an object belongs to.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

var ErrEntityNotFound = errors.New("metadata entity not found")

const (
	openAccessType = "open"

	defaultRequestTimeout   = 10 * time.Second
	defaultEntityCacheCost  = 1
	defaultEntityCacheSize  = 100000
	defaultEntityCacheCount = defaultEntityCacheSize * 10
)

// Entity is the registry record of one object.
type Entity struct {
	Id          string `json:"id"`
	GnosId      string `json:"gnosId"`
	FileName    string `json:"fileName"`
	ProjectCode string `json:"projectCode"`
	Access      string `json:"access"`
}

// IsOpenAccess reports whether the object may be downloaded without a study
// scope.
func (e *Entity) IsOpenAccess() bool {
	return strings.Contains(strings.ToLower(e.Access), openAccessType)
}

type IMetadataClient interface {
	GetEntity(ctx context.Context, objectId string) (*Entity, error)
}

type clientImpl struct {
	endpoint string
	cli      *http.Client
	cache    *ristretto.Cache[string, *Entity]
}

// New builds a registry client for the given endpoint. Entities are immutable
// once registered, so lookups are cached aggressively.
func New(endpoint string) (IMetadataClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Entity]{
		NumCounters: defaultEntityCacheCount,
		MaxCost:     defaultEntityCacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("build entity cache failed, err:%w", err)
	}
	return &clientImpl{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		cli: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		cache: cache,
	}, nil
}

func (c *clientImpl) GetEntity(ctx context.Context, objectId string) (*Entity, error) {
	if ent, ok := c.cache.Get(objectId); ok {
		return ent, nil
	}
	ent, err := c.fetchEntity(ctx, objectId)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(objectId, ent, defaultEntityCacheCost)
	return ent, nil
}

func (c *clientImpl) fetchEntity(ctx context.Context, objectId string) (*Entity, error) {
	link := fmt.Sprintf("%s/entities/%s", c.endpoint, objectId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build entity request failed, err:%w", err)
	}
	rsp, err := c.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request entity failed, object_id:%s, err:%w", objectId, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode == http.StatusNotFound {
		return nil, ErrEntityNotFound
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request entity failed, object_id:%s, status:%d", objectId, rsp.StatusCode)
	}
	raw, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("read entity body failed, err:%w", err)
	}
	ent := &Entity{}
	if err := json.Unmarshal(raw, ent); err != nil {
		return nil, fmt.Errorf("decode entity failed, err:%w", err)
	}
	return ent, nil
}
