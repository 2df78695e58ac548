package document

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"nexus-support-service/internal/repository"
)

// Store persists documents. Get, Update and Delete return
// repository.ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	// List returns up to limit documents after skip, newest created_at first.
	List(ctx context.Context, skip, limit int) ([]Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// GormStore keeps documents in a SQL database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the documents table if needed.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, doc *Document) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *GormStore) List(ctx context.Context, skip, limit int) ([]Document, error) {
	docs := make([]Document, 0)
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (s *GormStore) Update(ctx context.Context, doc *Document) error {
	res := s.db.WithContext(ctx).
		Model(&Document{}).
		Where("id = ?", doc.ID).
		Select("title", "content", "source", "updated_at").
		Updates(doc)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Document{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Document{}).Count(&n).Error
	return n, err
}

// RepositoryStore keeps documents in a keyed repository (memory or Redis)
// and sorts in process.
type RepositoryStore struct {
	repo repository.Repository[Document]
}

// NewRepositoryStore wraps repo.
func NewRepositoryStore(repo repository.Repository[Document]) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) Create(ctx context.Context, doc *Document) error {
	return s.repo.Put(ctx, doc.ID, *doc)
}

func (s *RepositoryStore) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *RepositoryStore) List(ctx context.Context, skip, limit int) ([]Document, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if skip >= len(all) {
		return []Document{}, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (s *RepositoryStore) Update(ctx context.Context, doc *Document) error {
	if _, err := s.repo.Get(ctx, doc.ID); err != nil {
		return err
	}
	return s.repo.Put(ctx, doc.ID, *doc)
}

func (s *RepositoryStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *RepositoryStore) Count(ctx context.Context) (int64, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}
