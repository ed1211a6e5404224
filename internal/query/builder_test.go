package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productMeta = Meta{
	Filterable: map[string]bool{
		"title":    true,
		"price":    true,
		"quantity": true,
		"sold":     true,
	},
	SearchFields: []string{"title", "description"},
	DefaultSort:  "created_at DESC",
}

var limits = Limits{DefaultLimit: 25, MaxLimit: 100}

func TestBuildFilterOperators(t *testing.T) {
	params := url.Values{}
	params.Set("price[gte]", "100")
	params.Set("price[lte]", "200")
	params.Set("quantity", "5")

	p := Build(params, nil, productMeta, limits)

	require.Len(t, p.Conds, 3)
	assert.Equal(t, "price >= $1", p.Conds[0])
	assert.Equal(t, "price <= $2", p.Conds[1])
	assert.Equal(t, "quantity = $3", p.Conds[2])
	assert.Equal(t, []interface{}{"100", "200", "5"}, p.Args)
	assert.Equal(t, " WHERE price >= $1 AND price <= $2 AND quantity = $3", p.WhereClause())
}

func TestBuildFilterUnknownOperatorFailsOpen(t *testing.T) {
	params := url.Values{}
	params.Set("price[within]", "150")

	p := Build(params, nil, productMeta, limits)

	require.Len(t, p.Conds, 1)
	assert.Equal(t, "price = $1", p.Conds[0])
}

func TestBuildFilterDropsUnknownColumns(t *testing.T) {
	params := url.Values{}
	params.Set("secret_column", "1")
	params.Set("page", "2")

	p := Build(params, nil, productMeta, limits)

	assert.Empty(t, p.Conds)
	assert.Equal(t, "", p.WhereClause())
}

func TestBuildScopesPrecedeFilters(t *testing.T) {
	params := url.Values{}
	params.Set("price[gt]", "10")

	p := Build(params, []Scope{{Column: "category_id", Value: int64(7)}}, productMeta, limits)

	require.Len(t, p.Conds, 2)
	assert.Equal(t, "category_id = $1", p.Conds[0])
	assert.Equal(t, "price > $2", p.Conds[1])
	assert.Equal(t, int64(7), p.Args[0])
}

func TestBuildSearch(t *testing.T) {
	params := url.Values{}
	params.Set("keyword", "shoes")

	p := Build(params, nil, productMeta, limits)

	require.Len(t, p.Conds, 1)
	assert.Equal(t, "(title ILIKE $1 OR description ILIKE $1)", p.Conds[0])
	assert.Equal(t, []interface{}{"%shoes%"}, p.Args)
}

func TestBuildSearchDisabledWithoutSearchFields(t *testing.T) {
	params := url.Values{}
	params.Set("keyword", "shoes")

	meta := productMeta
	meta.SearchFields = nil
	p := Build(params, nil, meta, limits)

	assert.Empty(t, p.Conds)
}

func TestBuildSort(t *testing.T) {
	params := url.Values{}
	params.Set("sort", "price,-sold")

	p := Build(params, nil, productMeta, limits)
	assert.Equal(t, "price ASC, sold DESC", p.OrderBy)
}

func TestBuildSortDefaultsToNewestFirst(t *testing.T) {
	p := Build(url.Values{}, nil, productMeta, limits)
	assert.Equal(t, "created_at DESC", p.OrderBy)
}

func TestBuildSortIgnoresUnknownColumns(t *testing.T) {
	params := url.Values{}
	params.Set("sort", "evil; DROP TABLE products,-price")

	p := Build(params, nil, productMeta, limits)
	assert.Equal(t, "price DESC", p.OrderBy)
}

func TestBuildFields(t *testing.T) {
	params := url.Values{}
	params.Set("fields", "title, price")

	p := Build(params, nil, productMeta, limits)
	assert.Equal(t, []string{"title", "price"}, p.Fields)
}

func TestBuildPaginationDefaults(t *testing.T) {
	p := Build(url.Values{}, nil, productMeta, limits)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 0, p.Offset())
}

func TestBuildPaginationClamping(t *testing.T) {
	params := url.Values{}
	params.Set("page", "-3")
	params.Set("limit", "100000")

	p := Build(params, nil, productMeta, limits)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.Limit)

	params.Set("limit", "0")
	p = Build(params, nil, productMeta, limits)
	assert.Equal(t, 1, p.Limit)
}

func TestPaginateNumberOfPages(t *testing.T) {
	params := url.Values{}
	params.Set("page", "3")
	params.Set("limit", "10")

	p := Build(params, nil, productMeta, limits)

	pg := p.Paginate(42)
	assert.Equal(t, 3, pg.CurrentPage)
	assert.Equal(t, 10, pg.Limit)
	assert.Equal(t, 5, pg.NumberOfPages)
	assert.Equal(t, 42, pg.Total)
	assert.Equal(t, 20, p.Offset())

	pg = p.Paginate(0)
	assert.Equal(t, 0, pg.NumberOfPages)
	assert.Equal(t, 0, pg.Total)
}
