package resource

import (
	"testing"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"
	"commerce-service/internal/query"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareFieldsStripsPrivilegedFields(t *testing.T) {
	fields := map[string]interface{}{
		"name":     "Shoes",
		"role":     "admin",
		"is_admin": true,
	}

	prepareFields(CategoriesDef{}, fields, nil)

	assert.NotContains(t, fields, "role")
	assert.NotContains(t, fields, "is_admin")
	assert.Contains(t, fields, "name")
}

func TestPrepareFieldsDerivesSlug(t *testing.T) {
	fields := map[string]interface{}{"title": "Red Shoes"}
	prepareFields(ProductsDef{}, fields, nil)
	assert.Equal(t, "red-shoes", fields["slug"])

	// title wins over name for products
	fields = map[string]interface{}{"name": "Old Name", "title": "New Title"}
	prepareFields(ProductsDef{}, fields, nil)
	assert.Equal(t, "new-title", fields["slug"])

	// re-derivation on update is the same code path
	fields = map[string]interface{}{"title": "Red Shoes"}
	prepareFields(ProductsDef{}, fields, nil)
	assert.Equal(t, "red-shoes", fields["slug"])
}

func TestPrepareFieldsInjectsScope(t *testing.T) {
	fields := map[string]interface{}{"name": "Sneakers"}
	prepareFields(SubCategoriesDef{}, fields, []query.Scope{{Column: "category_id", Value: int64(12)}})
	assert.Equal(t, int64(12), fields["category_id"])
}

func TestProjectKeepsIdentifier(t *testing.T) {
	doc := map[string]interface{}{
		"id":    int64(1),
		"title": "Red Shoes",
		"price": int64(5000),
		"sold":  3,
	}

	out := project(doc, []string{"title"})

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out["id"])
	assert.Equal(t, "Red Shoes", out["title"])
}

func TestProjectEmptyKeepsAll(t *testing.T) {
	doc := map[string]interface{}{"id": int64(1), "title": "x"}
	assert.Equal(t, doc, project(doc, nil))
}

func TestProductValidation(t *testing.T) {
	def := ProductsDef{}

	err := def.ValidateFields(map[string]interface{}{"title": "Red Shoes"}, false)
	require.Error(t, err)
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	err = def.ValidateFields(map[string]interface{}{"price": float64(-1)}, true)
	require.Error(t, err)
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	err = def.ValidateFields(map[string]interface{}{
		"title":       "Red Shoes",
		"description": "Comfortable red running shoes",
		"quantity":    float64(10),
		"price":       float64(5000),
		"category_id": float64(1),
		"image_cover": "cover.jpeg",
	}, false)
	assert.NoError(t, err)
}

func TestReviewValidation(t *testing.T) {
	def := ReviewsDef{}

	err := def.ValidateFields(map[string]interface{}{"rating": float64(6)}, true)
	require.Error(t, err)
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	err = def.ValidateFields(map[string]interface{}{
		"rating":     float64(4),
		"user_id":    float64(1),
		"product_id": float64(2),
	}, false)
	assert.NoError(t, err)
}

func TestConvertArgMarshalsCompositeValues(t *testing.T) {
	raw, ok := convertArg(map[string]interface{}{"a": 1}).([]byte)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	assert.Equal(t, "plain", convertArg("plain"))
}

func TestToDocLinksImageFields(t *testing.T) {
	e := NewEngine[models.Product](nil, ProductsDef{}, Options{BaseURL: "http://localhost:8080"})

	doc, err := e.toDoc(models.Product{
		Title:      "Red Shoes",
		ImageCover: "cover.jpeg",
		Images:     pq.StringArray{"side.jpeg", "https://cdn.example.com/back.jpeg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/products/cover.jpeg", doc["image_cover"])

	images, ok := doc["images"].([]interface{})
	require.True(t, ok)
	require.Len(t, images, 2)
	assert.Equal(t, "http://localhost:8080/products/side.jpeg", images[0])
	// already-absolute entries pass through untouched
	assert.Equal(t, "https://cdn.example.com/back.jpeg", images[1])
}

func TestLinkImage(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/products/a.jpeg",
		linkImage("http://localhost:8080", "products", "a.jpeg"))
	assert.Equal(t, "https://cdn.example.com/a.jpeg",
		linkImage("http://localhost:8080", "products", "https://cdn.example.com/a.jpeg"))
	assert.Equal(t, "", linkImage("http://localhost:8080", "products", ""))
}

func TestEngineCRUDIntegration(t *testing.T) {
	// Covered end to end against a real database; the engine paths are all
	// SQL round-trips.
	t.Skip("Integration test - requires database")
}
