// Package query translates raw list-endpoint parameters into a parameterized
// SQL plan: filter predicate, keyword search, sort order, field projection
// and a pagination window.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Parameters reserved for the plan itself; everything else is a filter key.
var reservedParams = map[string]bool{
	"page":    true,
	"limit":   true,
	"sort":    true,
	"fields":  true,
	"keyword": true,
}

// Comparison operators accepted in bracket syntax, e.g. price[gte]=100.
// An unknown operator degrades to equality on the column (fail-open).
var operators = map[string]string{
	"gte": ">=",
	"lte": "<=",
	"gt":  ">",
	"lt":  "<",
	"eq":  "=",
}

// Meta describes the queryable surface of one resource type.
type Meta struct {
	// Filterable whitelists columns usable in filter and sort parameters.
	Filterable map[string]bool
	// SearchFields are matched case-insensitively by the keyword parameter.
	// Empty disables search for the resource.
	SearchFields []string
	// DefaultSort is applied when no sort parameter is present.
	DefaultSort string
}

// Limits bounds the pagination window.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Scope is a pre-applied condition injected before the plan is built, such
// as a nested-route parent or an ownership restriction.
type Scope struct {
	Column string
	Value  interface{}
}

// Pagination describes the window of a list response relative to the total
// number of rows matching the plan's conditions.
type Pagination struct {
	CurrentPage   int `json:"currentPage"`
	Limit         int `json:"limit"`
	NumberOfPages int `json:"numberOfPages"`
	Total         int `json:"total"`
}

// Plan is a fully resolved list query.
type Plan struct {
	Conds   []string
	Args    []interface{}
	OrderBy string
	// Fields is the response projection; empty means all fields.
	Fields []string
	Page   int
	Limit  int
}

// Build assembles a plan from raw query parameters. Scopes come first so
// their conditions always apply regardless of caller-supplied filters.
func Build(params url.Values, scopes []Scope, meta Meta, limits Limits) *Plan {
	p := &Plan{}

	for _, scope := range scopes {
		p.addCond(scope.Column+" = ", scope.Value)
	}

	p.buildFilter(params, meta)
	p.buildSearch(params.Get("keyword"), meta)
	p.buildFields(params.Get("fields"))
	p.buildSort(params.Get("sort"), meta)
	p.buildPagination(params, limits)

	return p
}

func (p *Plan) addCond(prefix string, value interface{}) {
	p.Args = append(p.Args, value)
	p.Conds = append(p.Conds, fmt.Sprintf("%s$%d", prefix, len(p.Args)))
}

func (p *Plan) buildFilter(params url.Values, meta Meta) {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reservedParams[key] {
			continue
		}

		column, op := key, "="
		if open := strings.IndexByte(key, '['); open >= 0 && strings.HasSuffix(key, "]") {
			column = key[:open]
			if sqlOp, ok := operators[key[open+1:len(key)-1]]; ok {
				op = sqlOp
			}
		}

		if !meta.Filterable[column] {
			continue
		}
		p.addCond(column+" "+op+" ", params.Get(key))
	}
}

func (p *Plan) buildSearch(keyword string, meta Meta) {
	if keyword == "" || len(meta.SearchFields) == 0 {
		return
	}

	p.Args = append(p.Args, "%"+keyword+"%")
	arg := len(p.Args)

	parts := make([]string, len(meta.SearchFields))
	for i, field := range meta.SearchFields {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", field, arg)
	}
	p.Conds = append(p.Conds, "("+strings.Join(parts, " OR ")+")")
}

func (p *Plan) buildFields(fields string) {
	if fields == "" {
		return
	}
	for _, f := range strings.Split(fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			p.Fields = append(p.Fields, f)
		}
	}
}

func (p *Plan) buildSort(sortParam string, meta Meta) {
	var parts []string
	for _, key := range strings.Split(sortParam, ",") {
		key = strings.TrimSpace(key)
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			key = key[1:]
			dir = "DESC"
		}
		if meta.Filterable[key] {
			parts = append(parts, key+" "+dir)
		}
	}

	if len(parts) == 0 {
		p.OrderBy = meta.DefaultSort
		if p.OrderBy == "" {
			p.OrderBy = "created_at DESC"
		}
		return
	}
	p.OrderBy = strings.Join(parts, ", ")
}

// buildPagination clamps out-of-range numbers instead of rejecting them.
func (p *Plan) buildPagination(params url.Values, limits Limits) {
	p.Page = 1
	if n, err := strconv.Atoi(params.Get("page")); err == nil && n > 1 {
		p.Page = n
	}

	p.Limit = limits.DefaultLimit
	if n, err := strconv.Atoi(params.Get("limit")); err == nil {
		p.Limit = n
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if limits.MaxLimit > 0 && p.Limit > limits.MaxLimit {
		p.Limit = limits.MaxLimit
	}
}

// WhereClause renders the conditions as a SQL fragment, empty if there are
// no conditions.
func (p *Plan) WhereClause() string {
	if len(p.Conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.Conds, " AND ")
}

// Offset is the number of rows skipped by the pagination window.
func (p *Plan) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Paginate resolves the pagination result against the total row count
// matching the plan's conditions.
func (p *Plan) Paginate(total int) Pagination {
	return Pagination{
		CurrentPage:   p.Page,
		Limit:         p.Limit,
		NumberOfPages: int(math.Ceil(float64(total) / float64(p.Limit))),
		Total:         total,
	}
}
