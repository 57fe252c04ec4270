// Package client is a small data-access layer over the generic collection
// API. It keeps the call-site shape of the original fluent query builder
// (From().Select().Eq().Order()) but execution is always an explicit
// terminal call returning (value, error) — nothing fires implicitly.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Record is one loosely typed document. The server's native "_id" field is
// rewritten to "id" at the top level only; nested documents are untouched.
type Record map[string]interface{}

// ErrMissingID is returned by Update and Delete when neither the partial
// document nor an Eq("id", ...) clause carries the target id.
var ErrMissingID = errors.New("missing_id")

// APIError carries a non-2xx response through the error return.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
}

// SetToken attaches a bearer token to every subsequent request.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

type Session struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// SignUp registers the account and keeps the returned token on the client.
func (c *Client) SignUp(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

// SignIn logs in and keeps the returned token on the client.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) SignOut() { c.token = "" }

func (c *Client) authenticate(ctx context.Context, path, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &s); err != nil {
		return Session{}, err
	}
	c.token = s.Token
	return s, nil
}

type Identity struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Me resolves the current token against the server.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// From starts a query against one collection.
func (c *Client) From(collection string) *Query {
	return &Query{
		c:          c,
		collection: collection,
		filter:     map[string]interface{}{},
	}
}

// Query accumulates filter, sort and pagination state. It issues no I/O
// until one of its terminal methods runs.
type Query struct {
	c          *Client
	collection string
	fields     string
	filter     map[string]interface{}
	sortField  string
	ascending  bool
	skip       int
	limit      int
}

// Select records the requested fields. The backend always returns whole
// documents; the field list is kept for call-site compatibility.
func (q *Query) Select(fields string) *Query {
	q.fields = fields
	return q
}

// Eq adds one exact-match condition. Conditions combine as AND.
func (q *Query) Eq(field string, value interface{}) *Query {
	q.filter[field] = value
	return q
}

func (q *Query) Order(field string, ascending bool) *Query {
	q.sortField = field
	q.ascending = ascending
	return q
}

func (q *Query) Skip(n int) *Query {
	q.skip = n
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Execute runs the accumulated query as one list call.
func (q *Query) Execute(ctx context.Context) ([]Record, error) {
	params := url.Values{}
	if len(q.filter) > 0 {
		raw, err := json.Marshal(q.filter)
		if err != nil {
			return nil, err
		}
		params.Set("filter", string(raw))
	}
	if q.sortField != "" {
		params.Set("sort", q.sortField)
		if q.ascending {
			params.Set("order", "asc")
		} else {
			params.Set("order", "desc")
		}
	}
	if q.skip > 0 {
		params.Set("skip", strconv.Itoa(q.skip))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}

	var docs []Record
	if err := q.c.do(ctx, http.MethodGet, "/api/"+q.collection, params, nil, &docs); err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i] = normalize(docs[i])
	}
	return docs, nil
}

// MaybeSingle runs the query and returns the first match, or nil when
// nothing matched. It is not an error for the result to be absent.
func (q *Query) MaybeSingle(ctx context.Context) (Record, error) {
	docs, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Insert creates the given rows and returns them with server-assigned ids.
func (q *Query) Insert(ctx context.Context, rows ...Record) ([]Record, error) {
	var created []Record
	if err := q.c.do(ctx, http.MethodPost, "/api/"+q.collection, nil, rows, &created); err != nil {
		return nil, err
	}
	for i := range created {
		created[i] = normalize(created[i])
	}
	return created, nil
}

// Update merges the partial document into the record identified by
// partial["id"] or a prior Eq("id", ...) clause.
func (q *Query) Update(ctx context.Context, partial Record) (Record, error) {
	id := recordID(partial)
	if id == "" {
		id = filterID(q.filter)
	}
	if id == "" {
		return nil, ErrMissingID
	}
	var updated Record
	if err := q.c.do(ctx, http.MethodPut, "/api/"+q.collection+"/"+id, nil, partial, &updated); err != nil {
		return nil, err
	}
	return normalize(updated), nil
}

// Delete removes the record identified by a prior Eq("id", ...) clause.
func (q *Query) Delete(ctx context.Context) error {
	id := filterID(q.filter)
	if id == "" {
		return ErrMissingID
	}
	return q.c.do(ctx, http.MethodDelete, "/api/"+q.collection+"/"+id, nil, nil, nil)
}

// Upsert updates the record whose onConflict field matches row, or creates
// one when no match exists. This is read-then-write, not atomic: two
// concurrent upserts on the same key can both see no match and both
// create, leaving a duplicate. Best-effort convenience only.
func (q *Query) Upsert(ctx context.Context, row Record, onConflict string) (Record, error) {
	if onConflict != "" {
		existing, err := q.c.From(q.collection).Eq(onConflict, row[onConflict]).MaybeSingle(ctx)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if id := recordID(existing); id != "" {
				partial := make(Record, len(row)+1)
				for k, v := range row {
					partial[k] = v
				}
				partial["id"] = id
				return q.c.From(q.collection).Update(ctx, partial)
			}
		}
	}
	created, err := q.Insert(ctx, row)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, nil
	}
	return created[0], nil
}

// Storage scopes uploads to one logical bucket.
func (c *Client) Storage(bucket string) *Bucket {
	return &Bucket{c: c, name: bucket}
}

type Bucket struct {
	c    *Client
	name string
}

type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Upload sends the payload base64-encoded to the storage relay.
func (b *Bucket) Upload(ctx context.Context, filePath string, data []byte) (UploadResult, error) {
	body := map[string]string{
		"bucket":   b.name,
		"filePath": filePath,
		"base64":   base64.StdEncoding.EncodeToString(data),
	}
	var res UploadResult
	if err := b.c.do(ctx, http.MethodPost, "/storage/upload", nil, body, &res); err != nil {
		return UploadResult{}, err
	}
	return res, nil
}

// GetPublicURL composes the static-mount URL without any request.
func (b *Bucket) GetPublicURL(filePath string) string {
	return fmt.Sprintf("%s/uploads/%s/%s", b.c.baseURL, b.name, filePath)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func normalize(rec Record) Record {
	if rec == nil {
		return nil
	}
	raw, ok := rec["_id"]
	if !ok {
		return rec
	}
	if _, has := rec["id"]; has {
		return rec
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	out["id"] = fmt.Sprint(raw)
	return out
}

func recordID(rec Record) string {
	if rec == nil {
		return ""
	}
	if id, ok := rec["id"].(string); ok {
		return id
	}
	return ""
}

func filterID(filter map[string]interface{}) string {
	if id, ok := filter["id"].(string); ok {
		return id
	}
	return ""
}
