package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"commerce-service/internal/apperr"
	"commerce-service/internal/query"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Fields never accepted from a caller, regardless of resource or intent.
var privilegedFields = []string{"role", "is_admin"}

// ListResult is the payload of a list operation.
type ListResult struct {
	Documents  []map[string]interface{}
	Pagination query.Pagination
}

// Operations is the resource-agnostic surface the HTTP layer binds routes
// to; every Engine instantiation implements it.
type Operations interface {
	Definition() Definition
	List(ctx context.Context, params url.Values, scopes ...query.Scope) (*ListResult, error)
	GetOne(ctx context.Context, id int64) (map[string]interface{}, error)
	Create(ctx context.Context, fields map[string]interface{}, scopes ...query.Scope) (map[string]interface{}, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, id int64) error
}

// Options tunes engine behavior shared across resources.
type Options struct {
	Limits query.Limits
	// EmptyListNotFound makes a zero-match list respond with NotFound
	// instead of an empty result set.
	EmptyListNotFound bool
	// BaseURL prefixes derived image URLs.
	BaseURL string
}

// Engine executes the five canonical operations for one resource type T.
type Engine[T any] struct {
	store  *store.Store
	def    Definition
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an engine bound to a resource definition.
func NewEngine[T any](s *store.Store, def Definition, opts Options) *Engine[T] {
	return &Engine[T]{
		store:  s,
		def:    def,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

func (e *Engine[T]) Definition() Definition { return e.def }

// List builds a query plan from the raw parameters, scoped by any injected
// conditions, and returns one page plus the pagination result computed
// against the total matching the same conditions.
func (e *Engine[T]) List(ctx context.Context, params url.Values, scopes ...query.Scope) (*ListResult, error) {
	ctx, span := util.StartSpan(ctx, "resource.List."+e.def.Name())
	defer span.End()

	plan := query.Build(params, scopes, e.def.QueryMeta(), e.opts.Limits)

	var total int
	countQuery := "SELECT COUNT(*) FROM " + e.def.Table() + plan.WhereClause()
	if err := e.store.DB().GetContext(ctx, &total, countQuery, plan.Args...); err != nil {
		return nil, e.observe(ctx, "list", fmt.Errorf("failed to count %s: %w", e.def.Name(), err))
	}

	rows := []T{}
	listQuery := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s LIMIT %d OFFSET %d",
		e.def.Table(), plan.WhereClause(), plan.OrderBy, plan.Limit, plan.Offset())
	if err := e.store.DB().SelectContext(ctx, &rows, listQuery, plan.Args...); err != nil {
		return nil, e.observe(ctx, "list", fmt.Errorf("failed to list %s: %w", e.def.Name(), err))
	}

	if len(rows) == 0 && e.opts.EmptyListNotFound {
		return nil, e.observe(ctx, "list", apperr.New(apperr.NotFound, "No documents found"))
	}

	docs := make([]map[string]interface{}, 0, len(rows))
	for i := range rows {
		doc, err := e.toDoc(rows[i])
		if err != nil {
			return nil, e.observe(ctx, "list", err)
		}
		docs = append(docs, project(doc, plan.Fields))
	}

	_ = e.observe(ctx, "list", nil)
	return &ListResult{Documents: docs, Pagination: plan.Paginate(total)}, nil
}

// GetOne resolves a resource by identifier, populating the definition's
// relation when it declares one.
func (e *Engine[T]) GetOne(ctx context.Context, id int64) (map[string]interface{}, error) {
	ctx, span := util.StartSpan(ctx, "resource.GetOne."+e.def.Name())
	defer span.End()

	var row T
	err := e.store.DB().GetContext(ctx, &row,
		"SELECT * FROM "+e.def.Table()+" WHERE id = $1", id)
	if err != nil {
		return nil, e.observe(ctx, "get", apperr.FromDB(err, "Document not found"))
	}

	doc, err := e.toDoc(row)
	if err != nil {
		return nil, e.observe(ctx, "get", err)
	}

	if p, ok := e.def.(Populatable); ok {
		if err := e.populate(ctx, doc, p.Populate()); err != nil {
			return nil, e.observe(ctx, "get", err)
		}
	}

	return doc, e.observe(ctx, "get", nil)
}

// Create persists a field map. Privilege-elevation fields are stripped
// unconditionally, nested scopes inject the parent reference, and a slug is
// derived when the definition declares slug sources.
func (e *Engine[T]) Create(ctx context.Context, fields map[string]interface{}, scopes ...query.Scope) (map[string]interface{}, error) {
	ctx, span := util.StartSpan(ctx, "resource.Create."+e.def.Name())
	defer span.End()

	prepareFields(e.def, fields, scopes)

	if v, ok := e.def.(Validating); ok {
		if err := v.ValidateFields(fields, false); err != nil {
			return nil, e.observe(ctx, "create", err)
		}
	}

	columns, args := e.writableValues(fields)
	if len(columns) == 0 {
		return nil, e.observe(ctx, "create", apperr.New(apperr.ValidationFailed, "No valid fields provided"))
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insertQuery := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		e.def.Table(), strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	var row T
	if err := e.store.DB().GetContext(ctx, &row, insertQuery, args...); err != nil {
		return nil, e.observe(ctx, "create", apperr.FromDB(err, ""))
	}

	return e.finishWrite(ctx, "create", row)
}

// Update applies a partial field map to the identified resource,
// re-deriving the slug when a slug source is present in the patch.
func (e *Engine[T]) Update(ctx context.Context, id int64, fields map[string]interface{}) (map[string]interface{}, error) {
	ctx, span := util.StartSpan(ctx, "resource.Update."+e.def.Name())
	defer span.End()

	prepareFields(e.def, fields, nil)

	if v, ok := e.def.(Validating); ok {
		if err := v.ValidateFields(fields, true); err != nil {
			return nil, e.observe(ctx, "update", err)
		}
	}

	columns, args := e.writableValues(fields)
	if len(columns) == 0 {
		return nil, e.observe(ctx, "update", apperr.New(apperr.ValidationFailed, "No valid fields provided"))
	}

	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}

	args = append(args, id)
	updateQuery := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d RETURNING *",
		e.def.Table(), strings.Join(assignments, ", "), len(args))

	var row T
	if err := e.store.DB().GetContext(ctx, &row, updateQuery, args...); err != nil {
		return nil, e.observe(ctx, "update", apperr.FromDB(err, "No document found with this ID"))
	}

	return e.finishWrite(ctx, "update", row)
}

// Delete resolves-and-removes in one statement, firing the definition's
// write observer with the removed document.
func (e *Engine[T]) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "resource.Delete."+e.def.Name())
	defer span.End()

	var row T
	err := e.store.DB().GetContext(ctx, &row,
		"DELETE FROM "+e.def.Table()+" WHERE id = $1 RETURNING *", id)
	if err != nil {
		return e.observe(ctx, "delete", apperr.FromDB(err, "No document found with this ID"))
	}

	_, err = e.finishWrite(ctx, "delete", row)
	return err
}

// finishWrite converts the written row, fires the observer hook and derives
// image URLs for the response.
func (e *Engine[T]) finishWrite(ctx context.Context, op string, row T) (map[string]interface{}, error) {
	doc, err := e.toDoc(row)
	if err != nil {
		return nil, e.observe(ctx, op, err)
	}

	if o, ok := e.def.(WriteObserver); ok {
		if err := o.AfterWrite(ctx, e.store, doc); err != nil {
			e.logger.Error("post-write hook failed",
				zap.String("resource", e.def.Name()),
				zap.String("operation", op),
				zap.Error(err))
		}
	}

	return doc, e.observe(ctx, op, nil)
}

func (e *Engine[T]) observe(ctx context.Context, op string, err error) error {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if !apperr.IsOperational(err) {
			e.logger.Error("resource operation failed",
				zap.String("resource", e.def.Name()),
				zap.String("operation", op),
				zap.Error(err))
		}
	}
	util.ResourceOpsTotal.WithLabelValues(e.def.Name(), op, outcome).Inc()
	return err
}

// toDoc serializes a row through its json tags, then rewrites stored image
// filenames to absolute URLs when the definition links images.
func (e *Engine[T]) toDoc(row T) (map[string]interface{}, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	if linker, ok := e.def.(ImageLinker); ok && e.opts.BaseURL != "" {
		for _, field := range linker.ImageFields() {
			switch v := doc[field].(type) {
			case string:
				doc[field] = linkImage(e.opts.BaseURL, linker.ImagePath(), v)
			case []interface{}:
				for i, item := range v {
					if name, ok := item.(string); ok {
						v[i] = linkImage(e.opts.BaseURL, linker.ImagePath(), name)
					}
				}
			}
		}
	}
	return doc, nil
}

// linkImage turns a stored filename into an absolute URL. Already-absolute
// values and empty names pass through untouched.
func linkImage(baseURL, path, name string) string {
	if name == "" || strings.Contains(name, "://") {
		return name
	}
	return baseURL + "/" + path + "/" + name
}

// populate embeds the id and name of a to-one relation into the document.
func (e *Engine[T]) populate(ctx context.Context, doc map[string]interface{}, rel Relation) error {
	fk, ok := int64Field(doc, rel.FK)
	if !ok {
		return nil
	}

	var related struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	err := e.store.DB().GetContext(ctx, &related,
		"SELECT id, name FROM "+rel.Table+" WHERE id = $1", fk)
	if err != nil {
		// a dangling reference degrades to the bare foreign key
		e.logger.Warn("failed to populate relation",
			zap.String("resource", e.def.Name()),
			zap.String("relation", rel.Field),
			zap.Error(err))
		return nil
	}

	doc[rel.Field] = map[string]interface{}{"id": related.ID, "name": related.Name}
	return nil
}

// writableValues picks the declared columns present in the field map, in
// declaration order, converting values for the driver.
func (e *Engine[T]) writableValues(fields map[string]interface{}) ([]string, []interface{}) {
	var columns []string
	var args []interface{}
	for _, col := range e.def.Columns() {
		if v, ok := fields[col]; ok {
			columns = append(columns, col)
			args = append(args, convertArg(v))
		}
	}
	return columns, args
}

// prepareFields applies the caller-independent mutations shared by create
// and update: privilege stripping, scope injection and slug derivation.
func prepareFields(def Definition, fields map[string]interface{}, scopes []query.Scope) {
	for _, f := range privilegedFields {
		delete(fields, f)
	}
	for _, scope := range scopes {
		fields[scope.Column] = scope.Value
	}
	if s, ok := def.(Sluggable); ok {
		for _, src := range s.SlugSources() {
			if v, ok := stringField(fields, src); ok && v != "" {
				fields["slug"] = Slugify(v)
			}
		}
	}
}

// project restricts a document to the requested fields, always retaining
// the identifier. Empty projection keeps all fields.
func project(doc map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return doc
	}
	out := map[string]interface{}{"id": doc["id"]}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

// convertArg adapts JSON-decoded values to driver types.
func convertArg(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		return pq.Array(val)
	case map[string]interface{}:
		raw, err := json.Marshal(val)
		if err != nil {
			return val
		}
		return raw
	default:
		return v
	}
}

func stringField(fields map[string]interface{}, key string) (string, bool) {
	v, ok := fields[key].(string)
	return v, ok
}

func numField(fields map[string]interface{}, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func int64Field(fields map[string]interface{}, key string) (int64, bool) {
	f, ok := numField(fields, key)
	return int64(f), ok
}

func requireFields(fields map[string]interface{}, required ...string) error {
	var missing []string
	for _, key := range required {
		if v, ok := fields[key]; !ok || v == nil || v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.ValidationFailed,
			"Invalid input data. Missing required fields: %s.", strings.Join(missing, ", "))
	}
	return nil
}

func requireNonNegative(fields map[string]interface{}, keys ...string) error {
	for _, key := range keys {
		if v, ok := numField(fields, key); ok && v < 0 {
			return apperr.Newf(apperr.ValidationFailed,
				"Invalid input data. %s must be greater than or equal to 0.", key)
		}
	}
	return nil
}
