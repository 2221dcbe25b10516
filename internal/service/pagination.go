package service

import "github.com/noah-isme/abroad-api/internal/models"

// DefaultPageSize is the number of programs shown per catalog page.
const DefaultPageSize = 6

// Paginate returns results[(page-1)*size : page*size]. Pages past the end are
// empty rather than an error, and an empty result set has zero pages.
func Paginate(results []models.Program, page, size int) models.Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(results)
	totalPages := (total + size - 1) / size

	out := models.Page{
		Items:      []models.Program{},
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: totalPages,
		NoResults:  total == 0,
	}
	start := (page - 1) * size
	if start >= total {
		return out
	}
	end := start + size
	if end > total {
		end = total
	}
	out.Items = append(out.Items, results[start:end]...)
	return out
}
