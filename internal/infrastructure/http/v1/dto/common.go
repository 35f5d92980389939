// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// --- List Response ---

// ListResponse wraps list results with paging parameters.
type ListResponse[T any] struct {
	Items  []T    `json:"items"`
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}

// NewListResponse never renders a null items array.
func NewListResponse[T any](items []T, limit, offset uint64) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}

// --- Paging ---

// PageQuery is the common limit/offset query.
type PageQuery struct {
	Limit  uint64 `form:"limit"`
	Offset uint64 `form:"offset"`
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
