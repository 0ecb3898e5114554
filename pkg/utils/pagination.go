package utils

import "math"

// PaginationParams holds pagination request parameters
type PaginationParams struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// PaginationMeta holds pagination response metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

// GetPaginationParams normalises page and limit. limit=0 means all rows.
func GetPaginationParams(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	return PaginationParams{
		Page:  page,
		Limit: limit,
	}
}

// CalculateOffset returns the SQL offset
func (p PaginationParams) CalculateOffset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// CalculateMeta generates pagination metadata
func CalculateMeta(totalCount int64, page, limit int) PaginationMeta {
	if limit <= 0 {
		return PaginationMeta{
			Page:       1,
			Limit:      int(totalCount),
			TotalCount: totalCount,
			TotalPages: 1,
		}
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(limit)))
	if totalPages < 0 {
		totalPages = 0
	}

	return PaginationMeta{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// Default on-chain id window for getAllServices when the caller gives none.
const (
	DefaultRangeStart uint64 = 1
	DefaultRangeEnd   uint64 = 3
	MaxRangeWidth     uint64 = 500
)

// IDRange is an inclusive window of contract service ids.
type IDRange struct {
	Start uint64 `form:"start" json:"start"`
	End   uint64 `form:"end" json:"end"`
}

// GetIDRange fills zero bounds with the defaults. ok is false when the
// window is inverted or wider than MaxRangeWidth.
func GetIDRange(start, end uint64) (IDRange, bool) {
	if start == 0 {
		start = DefaultRangeStart
	}
	if end == 0 {
		end = start + (DefaultRangeEnd - DefaultRangeStart)
	}
	if end < start || end-start+1 > MaxRangeWidth {
		return IDRange{Start: start, End: end}, false
	}
	return IDRange{Start: start, End: end}, true
}
