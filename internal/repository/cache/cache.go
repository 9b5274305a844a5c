// Package cache keeps the read-mostly tenant directory in memory in front of postgres.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:             5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// Store is the shared go-cache instance behind every cached repository.
type Store struct {
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

// NewStore creates a store. m may be nil.
func NewStore(cfg Config, m *metrics.Metrics) *Store {
	return &Store{
		cache:   gocache.New(cfg.TTL, cfg.CleanupInterval),
		metrics: m,
	}
}

// Invalidate drops every cached entry of one tenant.
func (s *Store) Invalidate(pgid string) {
	prefix := pgid + ":"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

func (s *Store) get(kind, key string) (interface{}, bool) {
	v, found := s.cache.Get(key)
	if s.metrics != nil {
		result := "miss"
		if found {
			result = "hit"
		}
		s.metrics.CacheLookups.WithLabelValues(kind, result).Inc()
	}
	return v, found
}

func (s *Store) set(key string, v interface{}) {
	s.cache.Set(key, v, gocache.DefaultExpiration)
}

func key(pgid, kind string, parts ...string) string {
	return pgid + ":" + kind + ":" + strings.Join(parts, ":")
}

type officeRepository struct {
	store *Store
	next  repository.OfficeRepository
}

// NewOfficeRepository caches the office list per tenant. Get is served from the cached list.
func NewOfficeRepository(store *Store, next repository.OfficeRepository) repository.OfficeRepository {
	return &officeRepository{store: store, next: next}
}

func (r *officeRepository) List(ctx context.Context, pgid string) ([]model.Office, error) {
	k := key(pgid, "offices")
	if v, ok := r.store.get("offices", k); ok {
		return append([]model.Office(nil), v.([]model.Office)...), nil
	}

	offices, err := r.next.List(ctx, pgid)
	if err != nil {
		return nil, err
	}
	r.store.set(k, offices)
	return append([]model.Office(nil), offices...), nil
}

func (r *officeRepository) Get(ctx context.Context, pgid, officeID string) (*model.Office, error) {
	offices, err := r.List(ctx, pgid)
	if err != nil {
		return nil, err
	}
	for i := range offices {
		if offices[i].OfficeID == officeID {
			return &offices[i], nil
		}
	}
	return nil, fmt.Errorf("office %w", repository.ErrNotFound)
}

type officeGroupRepository struct {
	store *Store
	next  repository.OfficeGroupRepository
}

func NewOfficeGroupRepository(store *Store, next repository.OfficeGroupRepository) repository.OfficeGroupRepository {
	return &officeGroupRepository{store: store, next: next}
}

// Get caches found groups only, so a newly provisioned group shows up on the next call.
func (r *officeGroupRepository) Get(ctx context.Context, pgid, groupID string) (*model.OfficeGroup, error) {
	k := key(pgid, "group", groupID)
	if v, ok := r.store.get("office_group", k); ok {
		g := v.(model.OfficeGroup)
		g.OfficeIDs = append([]string(nil), g.OfficeIDs...)
		return &g, nil
	}

	group, err := r.next.Get(ctx, pgid, groupID)
	if err != nil {
		return nil, err
	}
	r.store.set(k, *group)
	return group, nil
}

func (r *officeGroupRepository) List(ctx context.Context, pgid string) ([]model.OfficeGroup, error) {
	return r.next.List(ctx, pgid)
}

type securityGroupRepository struct {
	store *Store
	next  repository.SecurityGroupRepository
}

func NewSecurityGroupRepository(store *Store, next repository.SecurityGroupRepository) repository.SecurityGroupRepository {
	return &securityGroupRepository{store: store, next: next}
}

func (r *securityGroupRepository) Capabilities(ctx context.Context, pgid, code string) ([]model.Capability, error) {
	k := key(pgid, "caps", code)
	if v, ok := r.store.get("capabilities", k); ok {
		return append([]model.Capability(nil), v.([]model.Capability)...), nil
	}

	caps, err := r.next.Capabilities(ctx, pgid, code)
	if err != nil {
		return nil, err
	}
	r.store.set(k, caps)
	return append([]model.Capability(nil), caps...), nil
}

func (r *securityGroupRepository) List(ctx context.Context, pgid string) ([]model.SecurityGroup, error) {
	return r.next.List(ctx, pgid)
}
