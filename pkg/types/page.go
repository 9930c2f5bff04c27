package types

// Page is a Spring-style paginated response.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Size          int `json:"size"`
	Number        int `json:"number"`
}

// EmptyPage is what read endpoints return when the backend could not be
// reached. Content is non-nil so it encodes as [] rather than null.
func EmptyPage[T any](page, size int) Page[T] {
	return Page[T]{
		Content: []T{},
		Size:    size,
		Number:  page,
	}
}
