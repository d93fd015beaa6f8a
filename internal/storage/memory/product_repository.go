package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/customers/internal/domain"
)

type productRepository struct {
	v view
}

func (r *productRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	var out domain.Product
	err := r.v.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *productRepository) GetByCode(_ context.Context, code string) (domain.Product, error) {
	var out domain.Product
	err := r.v.read(func(st *state) error {
		id, ok := st.productCodes[code]
		if !ok {
			return domain.ErrProductNotFound
		}
		out = st.products[id]
		return nil
	})
	return out, err
}

func (r *productRepository) List(_ context.Context, offset, limit int) ([]domain.Product, error) {
	result := make([]domain.Product, 0)
	err := r.v.read(func(st *state) error {
		ids := make([]int64, 0, len(st.products))
		for id := range st.products {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range page(ids, offset, limit) {
			result = append(result, st.products[id])
		}
		return nil
	})
	return result, err
}

// Create сохраняет продукт; код уникален.
func (r *productRepository) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := r.v.write(func(st *state) error {
		if _, taken := st.productCodes[p.Code]; taken {
			return domain.ErrProductCodeExists
		}
		st.nextProductID++
		stored := domain.SetExistingProduct(st.nextProductID, p.Code, p.Name)
		st.products[stored.ID] = stored
		st.productCodes[stored.Code] = stored.ID
		out = stored
		return nil
	})
	return out, err
}

var _ domain.ProductRepository = (*productRepository)(nil)
