// Package product реализует работу с каталогом продуктов.
package product

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
)

// Service - каталог продуктов поверх репозитория (возможно, с кешем).
type Service struct {
	repo    domain.ProductRepository
	metrics *metrics.ServiceMetrics
	logger  *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(repo domain.ProductRepository, m *metrics.ServiceMetrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  log.WithField("component", "product-service"),
	}
}

// Create добавляет продукт; код уникален.
func (s *Service) Create(ctx context.Context, code, name string) (p domain.Product, err error) {
	defer s.observe("create", time.Now(), &err)

	candidate := domain.RegisterNewProduct(code, name)
	if !candidate.IsValid() {
		return domain.Product{}, domain.ErrProductFieldsInvalid
	}
	p, err = s.repo.Create(ctx, candidate)
	if err != nil {
		return domain.Product{}, s.storageError(err)
	}
	s.logger.WithFields(log.Fields{"product_id": p.ID, "code": p.Code}).Info("product created")
	return p, nil
}

// Get возвращает продукт по id.
func (s *Service) Get(ctx context.Context, id int64) (p domain.Product, err error) {
	defer s.observe("get", time.Now(), &err)

	p, err = s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, s.storageError(err)
	}
	return p, nil
}

// GetByCode возвращает продукт по коду.
func (s *Service) GetByCode(ctx context.Context, code string) (p domain.Product, err error) {
	defer s.observe("get_by_code", time.Now(), &err)

	p, err = s.repo.GetByCode(ctx, code)
	if err != nil {
		return domain.Product{}, s.storageError(err)
	}
	return p, nil
}

// List возвращает страницу каталога.
func (s *Service) List(ctx context.Context, pageNumber, pageSize int) (products []domain.Product, err error) {
	defer s.observe("list", time.Now(), &err)

	offset, limit, err := domain.PageBounds(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return []domain.Product{}, nil
	}
	products, err = s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, s.storageError(err)
	}
	return products, nil
}

func (s *Service) storageError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	s.logger.WithError(err).Error("catalog storage failure")
	return domain.WrapError(domain.KindIntegrity, "", err)
}

func (s *Service) observe(op string, started time.Time, err *error) {
	s.metrics.RecordOperation("product."+op, *err, time.Since(started))
}
