package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
	"github.com/kitlocker/kitlocker-server/storage"
	"github.com/kitlocker/kitlocker-server/utils"
)

type ProductService interface {
	ListCatalog(ctx context.Context) ([]models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int, input ProductInput) (*models.Product, error)
}

type ProductInput struct {
	Name           string `json:"name" validate:"required"`
	Category       string `json:"category" validate:"required"`
	BasePriceCents int    `json:"base_price_cents" validate:"required,gt=0"`
	Active         bool   `json:"active"`
}

type productService struct {
	productRepo repositories.ProductRepository
	uploader    storage.FileUploader
}

func NewProductService(productRepo repositories.ProductRepository, uploader storage.FileUploader) ProductService {
	return &productService{productRepo: productRepo, uploader: uploader}
}

func (s *productService) ListCatalog(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for i := range products {
		s.resolveImageURL(&products[i])
	}
	return products, nil
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %q: %w", slug, err)
	}
	s.resolveImageURL(product)
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrValidationFailed)
	}

	product := &models.Product{
		Name:           name,
		Slug:           utils.Slugify(name),
		Category:       input.Category,
		BasePriceCents: input.BasePriceCents,
		Active:         input.Active,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrProductSlugConflict) {
			return nil, fmt.Errorf("%w: product %q already exists", ErrValidationFailed, product.Slug)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int, input ProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrValidationFailed)
	}
	product.Name = name
	product.Slug = utils.Slugify(name)
	product.Category = input.Category
	product.BasePriceCents = input.BasePriceCents
	product.Active = input.Active

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	s.resolveImageURL(product)
	return product, nil
}

func (s *productService) resolveImageURL(product *models.Product) {
	if s.uploader == nil || product.ImageKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*product.ImageKey)
	product.ImageURL = &url
}
