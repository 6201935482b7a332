package persistence

// defaultPageSize caps unbounded list queries
const defaultPageSize = 50

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return limit
}

// pageOf converts offset/limit filters to the 1-based page numbering the
// shared pagination envelope uses.
func pageOf(offset, limit int) (page, pageSize int) {
	pageSize = pageLimit(limit)
	page = offset/pageSize + 1
	return page, pageSize
}
