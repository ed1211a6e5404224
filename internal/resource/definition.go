// Package resource implements the generic CRUD engine and the per-resource
// definitions it operates on. Resource-specific behavior (slug derivation,
// relation population, validation, post-write side effects, image URL
// derivation) is expressed as capability interfaces the engine probes with
// type assertions, keeping the engine itself free of per-type branches.
package resource

import (
	"context"

	"commerce-service/internal/apperr"
	"commerce-service/internal/query"
	"commerce-service/internal/store"
)

// Definition describes one resource type served by the engine.
type Definition interface {
	Name() string
	Table() string
	// Columns whitelists the writable columns, in insert order. Fields
	// outside this set are silently dropped from create/update payloads.
	Columns() []string
	QueryMeta() query.Meta
}

// Sluggable resources derive their slug from the first present source field.
// Listed later sources win, matching name-then-title precedence.
type Sluggable interface {
	SlugSources() []string
}

// Relation names a to-one relation populated on get-one.
type Relation struct {
	Field  string // key added to the response document
	Table  string // related table, exposing id and name
	FK     string // local foreign-key column
}

// Populatable resources embed a named relation on get-one.
type Populatable interface {
	Populate() Relation
}

// Validating resources check field-level constraints before a write.
// partial is true for updates, where required-field checks are skipped.
type Validating interface {
	ValidateFields(fields map[string]interface{}, partial bool) error
}

// WriteObserver resources run a side effect after create, update and delete,
// receiving the written (or deleted) document.
type WriteObserver interface {
	AfterWrite(ctx context.Context, s *store.Store, doc map[string]interface{}) error
}

// ImageLinker resources carry stored image filenames that are rewritten to
// absolute URLs on every read.
type ImageLinker interface {
	ImageFields() []string
	ImagePath() string
}

// ProductsDef serves the product catalog.
type ProductsDef struct{}

func (ProductsDef) Name() string  { return "products" }
func (ProductsDef) Table() string { return "products" }

func (ProductsDef) Columns() []string {
	return []string{
		"title", "slug", "description", "quantity", "sold", "price",
		"price_after_discount", "colors", "images", "image_cover",
		"category_id", "brand_id",
	}
}

func (ProductsDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable: map[string]bool{
			"title": true, "slug": true, "quantity": true, "sold": true,
			"price": true, "price_after_discount": true, "category_id": true,
			"brand_id": true, "ratings_average": true, "ratings_quantity": true,
			"created_at": true,
		},
		SearchFields: []string{"title", "description"},
		DefaultSort:  "created_at DESC",
	}
}

func (ProductsDef) SlugSources() []string { return []string{"name", "title"} }

func (ProductsDef) Populate() Relation {
	return Relation{Field: "category", Table: "categories", FK: "category_id"}
}

func (ProductsDef) ImageFields() []string { return []string{"image_cover", "images"} }
func (ProductsDef) ImagePath() string     { return "products" }

func (ProductsDef) ValidateFields(fields map[string]interface{}, partial bool) error {
	if !partial {
		if err := requireFields(fields, "title", "description", "quantity", "price", "category_id", "image_cover"); err != nil {
			return err
		}
	}
	if err := requireNonNegative(fields, "price", "quantity", "sold", "price_after_discount"); err != nil {
		return err
	}
	if v, ok := stringField(fields, "title"); ok && len(v) < 3 {
		return apperr.New(apperr.ValidationFailed, "Invalid input data. Too short product title.")
	}
	return nil
}

// CategoriesDef serves top-level categories.
type CategoriesDef struct{}

func (CategoriesDef) Name() string      { return "categories" }
func (CategoriesDef) Table() string     { return "categories" }
func (CategoriesDef) Columns() []string { return []string{"name", "slug", "image"} }

func (CategoriesDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable:   map[string]bool{"name": true, "slug": true, "created_at": true},
		SearchFields: []string{"name"},
		DefaultSort:  "created_at DESC",
	}
}

func (CategoriesDef) SlugSources() []string { return []string{"name"} }
func (CategoriesDef) ImageFields() []string { return []string{"image"} }
func (CategoriesDef) ImagePath() string     { return "categories" }

func (CategoriesDef) ValidateFields(fields map[string]interface{}, partial bool) error {
	if !partial {
		return requireFields(fields, "name")
	}
	return nil
}

// SubCategoriesDef serves subcategories, nested under categories.
type SubCategoriesDef struct{}

func (SubCategoriesDef) Name() string      { return "subcategories" }
func (SubCategoriesDef) Table() string     { return "subcategories" }
func (SubCategoriesDef) Columns() []string { return []string{"name", "slug", "category_id"} }

func (SubCategoriesDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable:   map[string]bool{"name": true, "slug": true, "category_id": true, "created_at": true},
		SearchFields: []string{"name"},
		DefaultSort:  "created_at DESC",
	}
}

func (SubCategoriesDef) SlugSources() []string { return []string{"name"} }

func (SubCategoriesDef) Populate() Relation {
	return Relation{Field: "category", Table: "categories", FK: "category_id"}
}

func (SubCategoriesDef) ValidateFields(fields map[string]interface{}, partial bool) error {
	if !partial {
		return requireFields(fields, "name", "category_id")
	}
	return nil
}

// BrandsDef serves product brands.
type BrandsDef struct{}

func (BrandsDef) Name() string      { return "brands" }
func (BrandsDef) Table() string     { return "brands" }
func (BrandsDef) Columns() []string { return []string{"name", "slug", "image"} }

func (BrandsDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable:   map[string]bool{"name": true, "slug": true, "created_at": true},
		SearchFields: []string{"name"},
		DefaultSort:  "created_at DESC",
	}
}

func (BrandsDef) SlugSources() []string { return []string{"name"} }
func (BrandsDef) ImageFields() []string { return []string{"image"} }
func (BrandsDef) ImagePath() string     { return "brands" }

func (BrandsDef) ValidateFields(fields map[string]interface{}, partial bool) error {
	if !partial {
		return requireFields(fields, "name")
	}
	return nil
}

// ReviewsDef serves product reviews. Every write refreshes the reviewed
// product's rating aggregate.
type ReviewsDef struct{}

func (ReviewsDef) Name() string      { return "reviews" }
func (ReviewsDef) Table() string     { return "reviews" }
func (ReviewsDef) Columns() []string { return []string{"title", "rating", "user_id", "product_id"} }

func (ReviewsDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable:  map[string]bool{"rating": true, "user_id": true, "product_id": true, "created_at": true},
		DefaultSort: "created_at DESC",
	}
}

func (ReviewsDef) ValidateFields(fields map[string]interface{}, partial bool) error {
	if !partial {
		if err := requireFields(fields, "rating", "user_id", "product_id"); err != nil {
			return err
		}
	}
	if v, ok := numField(fields, "rating"); ok && (v < 1 || v > 5) {
		return apperr.New(apperr.ValidationFailed, "Invalid input data. Rating must be between 1 and 5.")
	}
	return nil
}

func (ReviewsDef) AfterWrite(ctx context.Context, s *store.Store, doc map[string]interface{}) error {
	productID, ok := int64Field(doc, "product_id")
	if !ok {
		return nil
	}
	return s.RecomputeProductRatings(ctx, productID)
}

// OrdersDef exposes orders through the generic read surface. Writes go
// through the checkout orchestrator, never through the engine, so no
// writable columns are declared.
type OrdersDef struct{}

func (OrdersDef) Name() string      { return "orders" }
func (OrdersDef) Table() string     { return "orders" }
func (OrdersDef) Columns() []string { return nil }

func (OrdersDef) QueryMeta() query.Meta {
	return query.Meta{
		Filterable: map[string]bool{
			"user_id": true, "is_paid": true, "is_delivered": true,
			"payment_method": true, "total_order_price": true, "created_at": true,
		},
		DefaultSort: "created_at DESC",
	}
}
