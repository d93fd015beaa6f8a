package domain

// Product - позиция каталога; Code уникален и используется для поиска.
type Product struct {
	ID   int64
	Code string
	Name string

	valid bool
}

// RegisterNewProduct строит продукт для добавления в каталог; id назначает хранилище.
func RegisterNewProduct(code, name string) Product {
	p := Product{Code: code, Name: name}
	p.valid = NonEmptyString("code", code) == nil && NonEmptyString("name", name) == nil
	return p
}

// SetExistingProduct восстанавливает продукт из хранилища.
// Продукт валиден, только если id > 0 и code/name не пустые.
func SetExistingProduct(id int64, code, name string) Product {
	p := Product{ID: id, Code: code, Name: name}
	p.valid = PositiveInt("productId", id) == nil &&
		NonEmptyString("code", code) == nil &&
		NonEmptyString("name", name) == nil
	return p
}

// IsValid сообщает результат проверки фабрики.
func (p Product) IsValid() bool {
	return p.valid
}
