package library

import (
	"context"
	"log/slog"
)

// LibraryService is what the workflow and the API use.
type LibraryService interface {
	Save(ctx context.Context, v NewVideo) ([]SavedVideo, error)
	List(ctx context.Context) ([]SavedVideo, error)
	Get(ctx context.Context, id int) (*SavedVideo, error)
	Count(ctx context.Context) (int, error)
}

// Service writes through Store and reads through Cache.
type Service struct {
	store *Store
	cache *Cache
}

func NewService(st *Store, logger *slog.Logger) *Service {
	return &Service{store: st, cache: NewCache(st, logger)}
}

func (s *Service) Save(ctx context.Context, v NewVideo) ([]SavedVideo, error) {
	all, err := s.store.Save(ctx, v)
	if err != nil {
		return nil, err
	}
	s.cache.Appended(v, all)
	return all, nil
}

func (s *Service) List(ctx context.Context) ([]SavedVideo, error) {
	return s.cache.Get(ctx)
}

func (s *Service) Get(ctx context.Context, id int) (*SavedVideo, error) {
	videos, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return find(videos, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	videos, err := s.cache.Get(ctx)
	if err != nil {
		return 0, err
	}
	return len(videos), nil
}

// Cache exposes the query cache so callers can force a reload.
func (s *Service) Cache() *Cache {
	return s.cache
}
