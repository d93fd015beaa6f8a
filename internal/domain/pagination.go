package domain

// Параметры пагинации по умолчанию.
const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
)

// PageBounds переводит номер страницы (с единицы) и размер в offset/limit.
// Отрицательные значения отклоняются; номер 0 трактуется как первая страница.
// Нулевой размер даёт пустую страницу: limit == 0.
func PageBounds(pageNumber, pageSize int) (offset, limit int, err error) {
	if pageNumber < 0 || pageSize < 0 {
		return 0, 0, ErrPagination
	}
	if pageNumber == 0 {
		pageNumber = 1
	}
	return (pageNumber - 1) * pageSize, pageSize, nil
}
