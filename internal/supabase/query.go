package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder builds one PostgREST request against a table. It is a value
// type: every chained call returns a copy, so chains can be forked and a
// terminal execution is idempotent no matter how often it runs.
type QueryBuilder struct {
	client    *Client
	table     string
	method    string
	columns   string
	filters   []string
	orders    []string
	limitVal  *int
	offsetVal *int
	body      []byte
	prefer    []string
	single    bool
	countMode string
}

// clone copies the builder with freshly backed slices so that appends on the
// copy never leak into the original chain.
func (q QueryBuilder) clone() QueryBuilder {
	q.filters = append([]string(nil), q.filters...)
	q.orders = append([]string(nil), q.orders...)
	q.prefer = append([]string(nil), q.prefer...)
	return q
}

// =============================================================================
// Verbs
// =============================================================================

// Select specifies columns to project and marks the chain as a read.
func (q QueryBuilder) Select(columns string) QueryBuilder {
	out := q.clone()
	out.method = http.MethodGet
	if columns == "" {
		columns = "*"
	}
	out.columns = columns
	return out
}

// Insert marks the chain as a POST of data. The backend is asked to echo the
// created rows.
func (q QueryBuilder) Insert(data interface{}) QueryBuilder {
	out := q.clone()
	out.method = http.MethodPost
	out.body, _ = json.Marshal(data)
	out.prefer = append(out.prefer, "return=representation")
	return out
}

// Upsert marks the chain as an upserting POST.
func (q QueryBuilder) Upsert(data interface{}, onConflict string) QueryBuilder {
	out := q.clone()
	out.method = http.MethodPost
	out.body, _ = json.Marshal(data)
	out.prefer = append(out.prefer, "return=representation", "resolution=merge-duplicates")
	if onConflict != "" {
		out.filters = append(out.filters, "on_conflict="+url.QueryEscape(onConflict))
	}
	return out
}

// Update marks the chain as a PATCH of data against the filtered rows.
func (q QueryBuilder) Update(data interface{}) QueryBuilder {
	out := q.clone()
	out.method = http.MethodPatch
	out.body, _ = json.Marshal(data)
	out.prefer = append(out.prefer, "return=representation")
	return out
}

// Delete marks the chain as a DELETE against the filtered rows.
func (q QueryBuilder) Delete() QueryBuilder {
	out := q.clone()
	out.method = http.MethodDelete
	out.prefer = append(out.prefer, "return=representation")
	return out
}

// =============================================================================
// Filters
// =============================================================================

// Eq adds an equality filter.
func (q QueryBuilder) Eq(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpEq, value)
}

// Neq adds a not-equal filter.
func (q QueryBuilder) Neq(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpNeq, value)
}

// Gt adds a greater-than filter.
func (q QueryBuilder) Gt(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpGt, value)
}

// Gte adds a greater-than-or-equal filter.
func (q QueryBuilder) Gte(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpGte, value)
}

// Lt adds a less-than filter.
func (q QueryBuilder) Lt(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpLt, value)
}

// Lte adds a less-than-or-equal filter.
func (q QueryBuilder) Lte(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpLte, value)
}

// Is adds an IS filter (null, true, false).
func (q QueryBuilder) Is(column string, value interface{}) QueryBuilder {
	return q.filter(column, OpIs, value)
}

// In adds an IN filter.
func (q QueryBuilder) In(column string, values []string) QueryBuilder {
	out := q.clone()
	out.filters = append(out.filters, fmt.Sprintf("%s=in.(%s)", column, strings.Join(values, ",")))
	return out
}

// Or adds an OR filter group in PostgREST syntax, e.g.
// "name.ilike.*rex*,breed.ilike.*rex*".
func (q QueryBuilder) Or(conditions string) QueryBuilder {
	out := q.clone()
	out.filters = append(out.filters, "or=("+url.QueryEscape(conditions)+")")
	return out
}

// Filter adds a raw operator filter.
func (q QueryBuilder) Filter(column string, op FilterOperator, value interface{}) QueryBuilder {
	return q.filter(column, op, value)
}

func (q QueryBuilder) filter(column string, op FilterOperator, value interface{}) QueryBuilder {
	out := q.clone()
	out.filters = append(out.filters, fmt.Sprintf("%s=%s.%s", column, op, url.QueryEscape(fmt.Sprintf("%v", value))))
	return out
}

// =============================================================================
// Ordering and Pagination
// =============================================================================

// Order adds an order clause.
func (q QueryBuilder) Order(column string, dir OrderDirection) QueryBuilder {
	out := q.clone()
	if dir == "" {
		dir = OrderAsc
	}
	out.orders = append(out.orders, fmt.Sprintf("%s.%s", column, dir))
	return out
}

// Limit caps the number of rows returned.
func (q QueryBuilder) Limit(n int) QueryBuilder {
	out := q.clone()
	out.limitVal = &n
	return out
}

// Offset skips n rows.
func (q QueryBuilder) Offset(n int) QueryBuilder {
	out := q.clone()
	out.offsetVal = &n
	return out
}

// Single constrains the read to one row. ExecuteInto then unwraps the
// one-element array; an empty result yields a NotFound error rather than a
// decode failure.
func (q QueryBuilder) Single() QueryBuilder {
	one := 1
	out := q.clone()
	out.single = true
	out.limitVal = &one
	return out
}

// =============================================================================
// Execution
// =============================================================================

// Execute performs exactly one HTTP call and returns the raw response body.
func (q QueryBuilder) Execute(ctx context.Context) ([]byte, error) {
	headers := make(map[string]string)
	if len(q.prefer) > 0 {
		headers["Prefer"] = strings.Join(q.prefer, ",")
	}

	respBody, statusCode, _, err := q.client.request(ctx, q.method, q.buildURL(), q.body, headers)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}
	return respBody, nil
}

// ExecuteInto executes the query and unmarshals the result into dest. For a
// Single() chain dest receives the one matched row; no rows is a NotFound
// error.
func (q QueryBuilder) ExecuteInto(ctx context.Context, dest interface{}) error {
	data, err := q.Execute(ctx)
	if err != nil {
		return err
	}

	if q.single {
		var rows []json.RawMessage
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if len(rows) == 0 {
			return NewError(KindNotFound, "no rows returned", 0)
		}
		data = rows[0]
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// ExecuteCount executes a head-style count query and returns the exact number
// of rows matching the filters. No row data is transferred.
func (q QueryBuilder) ExecuteCount(ctx context.Context) (int64, error) {
	headers := map[string]string{
		"Prefer":     "count=exact",
		"Range":      "0-0",
		"Range-Unit": "items",
	}

	respBody, statusCode, respHeaders, err := q.client.request(ctx, http.MethodGet, q.buildURL(), nil, headers)
	if err != nil {
		return 0, err
	}
	// 416 means the range is past the end, i.e. zero matching rows.
	if statusCode == http.StatusRequestedRangeNotSatisfiable {
		return 0, nil
	}
	if statusCode >= 400 {
		return 0, parseError(respBody, statusCode)
	}

	return parseContentRangeTotal(respHeaders.Get("Content-Range"))
}

// parseContentRangeTotal extracts the total from a "0-0/42" style header.
func parseContentRangeTotal(contentRange string) (int64, error) {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 || idx == len(contentRange)-1 {
		return 0, fmt.Errorf("missing total in Content-Range %q", contentRange)
	}
	total := contentRange[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend did not report an exact count")
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range total: %w", err)
	}
	return n, nil
}

// buildURL builds the request URL.
func (q QueryBuilder) buildURL() string {
	urlStr := q.client.restURL + "/" + url.PathEscape(q.table)

	params := make([]string, 0, len(q.filters)+4)
	if q.method == http.MethodGet && q.columns != "" {
		params = append(params, "select="+url.QueryEscape(q.columns))
	}
	params = append(params, q.filters...)
	if len(q.orders) > 0 {
		params = append(params, "order="+strings.Join(q.orders, ","))
	}
	if q.limitVal != nil {
		params = append(params, fmt.Sprintf("limit=%d", *q.limitVal))
	}
	if q.offsetVal != nil {
		params = append(params, fmt.Sprintf("offset=%d", *q.offsetVal))
	}

	if len(params) > 0 {
		urlStr += "?" + strings.Join(params, "&")
	}
	return urlStr
}
