/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "strings"

// Paging defaults.
const (
	DefaultPageSize = 20
	PagerWindow     = 10
)

// Pager is the numeric page metadata of a paged list: the clamped request,
// the number of pages and a window of at most PagerWindow page numbers
// around the current page, suitable for rendering page links.
type Pager struct {
	TotalItems  int `json:"total_items"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalPages  int `json:"total_pages"`
	StartPage   int `json:"start_page"`
	EndPage     int `json:"end_page"`
}

// NewPager computes the pager for totalItems split into pages of pageSize.
// A page below 1 becomes 1 and a page size below 1 becomes DefaultPageSize.
// With no items TotalPages is 0 and the window is StartPage=1, EndPage=0.
// A page past the last one keeps its own window start, so the window comes
// out inverted (StartPage > EndPage) and Pages is empty: NewPager(30, 10, 20)
// gives StartPage=5, EndPage=2.
func NewPager(totalItems, page, pageSize int) Pager {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 0 {
		totalPages = 0
	}

	start := page - 5
	end := page + 4
	if start <= 0 {
		end -= start - 1
		start = 1
	}
	if end > totalPages {
		end = totalPages
		if end-start+1 > PagerWindow {
			start = end - (PagerWindow - 1)
		}
	}

	return Pager{
		TotalItems:  totalItems,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		StartPage:   start,
		EndPage:     end,
	}
}

// Offset is the number of items before the current page.
func (p Pager) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}

// HasPrevious reports whether a page precedes the current one.
func (p Pager) HasPrevious() bool { return p.CurrentPage > 1 }

// HasNext reports whether a page follows the current one.
func (p Pager) HasNext() bool { return p.CurrentPage < p.TotalPages }

// Pages lists the page numbers of the display window.
func (p Pager) Pages() []int {
	var pages []int
	for i := p.StartPage; i <= p.EndPage; i++ {
		pages = append(pages, i)
	}
	return pages
}

// PageRequest describes a paged list: page number, page size, an optional
// free-text search term and the related paths to eager-load.
type PageRequest struct {
	page     int
	pageSize int
	search   string
	includes []string
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		return DefaultPageSize
	}
	return p.pageSize
}

// WithDefaultPageSize sets the page size used when none was requested.
func (p *PageRequest) WithDefaultPageSize(size int) *PageRequest {
	if p.pageSize < 1 && size > 0 {
		p.pageSize = size
	}
	return p
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetSearch() string {
	return p.search
}

func (p *PageRequest) GetIncludes() []string {
	return p.includes
}

// HasSearch reports whether a non-blank search term was supplied.
func (p *PageRequest) HasSearch() bool {
	return strings.TrimSpace(p.search) != ""
}

// NewPageRequest constructs a PageRequest with search and include settings.
func NewPageRequest(page int, pageSize int, search string, includes ...string) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, search: search, includes: includes}
}

// NewDefaultPageRequest constructs a PageRequest with no search or includes.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, "")
}

// Pagination holds a page of items along with its pager.
type Pagination[T any] struct {
	Pager
	Items []*T `json:"items"`
}

// NewPagination constructs a pagination container for the given pager.
func NewPagination[T any](pager Pager, items []*T) *Pagination[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &Pagination[T]{Pager: pager, Items: items}
}
