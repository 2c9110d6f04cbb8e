package gql

import (
	"context"
	"strings"
)

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Connection is the wire shape of a cursor-paginated list.
type Connection[T any] struct {
	Nodes    []T      `json:"nodes"`
	PageInfo PageInfo `json:"pageInfo"`
}

func (c Connection[T]) Page() Page[T] {
	return Page[T]{Nodes: c.Nodes, HasNextPage: c.PageInfo.HasNextPage, EndCursor: c.PageInfo.EndCursor}
}

type Page[T any] struct {
	Nodes       []T
	HasNextPage bool
	EndCursor   string
}

// FetchFunc requests the page after cursor. An empty cursor means the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Collect concatenates first and every following page in arrival order.
func Collect[T any](ctx context.Context, first Page[T], next FetchFunc[T]) ([]T, error) {
	nodes := append([]T(nil), first.Nodes...)
	page := first
	for page.HasNextPage && strings.TrimSpace(page.EndCursor) != "" {
		var err error
		page, err = next(ctx, page.EndCursor)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, page.Nodes...)
	}
	return nodes, nil
}

// CollectAll fetches the first page itself and then behaves like Collect.
func CollectAll[T any](ctx context.Context, next FetchFunc[T]) ([]T, error) {
	first, err := next(ctx, "")
	if err != nil {
		return nil, err
	}
	return Collect(ctx, first, next)
}

// Walk hands each page to visit before requesting the next one.
func Walk[T any](ctx context.Context, next FetchFunc[T], visit func(Page[T]) error) error {
	cursor := ""
	for {
		page, err := next(ctx, cursor)
		if err != nil {
			return err
		}
		if err := visit(page); err != nil {
			return err
		}
		if !page.HasNextPage || strings.TrimSpace(page.EndCursor) == "" {
			return nil
		}
		cursor = page.EndCursor
	}
}
