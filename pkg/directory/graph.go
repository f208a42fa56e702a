package directory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production directory endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const ownerSelect = "id,displayName,userPrincipalName,mail"

// GraphClient talks to a Graph-style directory REST API. It implements
// Client; every failure it returns is an *Error.
type GraphClient struct {
	base   string
	http   *retryablehttp.Client
	tokens TokenSource
	log    zerolog.Logger
}

// GraphOption configures a GraphClient.
type GraphOption func(*GraphClient)

// WithBaseURL overrides the endpoint (tests, sovereign clouds).
func WithBaseURL(base string) GraphOption {
	return func(c *GraphClient) { c.base = strings.TrimRight(base, "/") }
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) GraphOption {
	return func(c *GraphClient) { c.log = log }
}

// WithHTTPClient swaps the retrying transport (tests).
func WithHTTPClient(h *retryablehttp.Client) GraphOption {
	return func(c *GraphClient) { c.http = h }
}

// NewGraphClient builds a client over the given token source.
func NewGraphClient(tokens TokenSource, opts ...GraphOption) *GraphClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil // zerolog handles request logging below

	c := &GraphClient{
		base:   DefaultBaseURL,
		http:   rc,
		tokens: tokens,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// odataError is the wire shape of a directory failure.
type odataError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// listEnvelope wraps collection responses.
type listEnvelope struct {
	Value    json.RawMessage `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

func (c *GraphClient) do(ctx context.Context, method, rawURL string, body any, eventual bool) ([]byte, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err // already a *Error with credential-unavailable
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, NewError(CodeGeneric, "encode request body: %v", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, buf)
	if err != nil {
		return nil, NewError(CodeGeneric, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if eventual {
		// Server-side filtering/counting requires the eventually
		// consistent query path.
		req.Header.Set("ConsistencyLevel", "eventual")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewError(CodeGeneric, "%s %s: %v", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(CodeGeneric, "read response: %v", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("directory request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, c.mapFailure(resp.StatusCode, data)
}

// mapFailure translates an HTTP failure into a coded Error.
func (c *GraphClient) mapFailure(status int, body []byte) *Error {
	var oe odataError
	_ = json.Unmarshal(body, &oe)
	msg := oe.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	code := CodeGeneric
	switch {
	case status == http.StatusNotFound,
		oe.Error.Code == "Request_ResourceNotFound",
		oe.Error.Code == "ResourceNotFound":
		code = CodeNotFound
	case status == http.StatusUnauthorized,
		oe.Error.Code == "InvalidAuthenticationToken",
		oe.Error.Code == "ExpiredAuthenticationToken":
		code = CodeAuthenticationRequired
	case status == http.StatusTooManyRequests:
		code = CodeThrottled
	case status == http.StatusConflict:
		code = CodeConflict
	case status == http.StatusBadRequest && strings.Contains(msg, "signInAudience"):
		// The directory reports audience-change incompatibilities as a
		// plain bad request; the message is the only discriminator it
		// gives us.
		code = CodeConflict
	}

	return &Error{Code: code, Message: msg, Status: status}
}

func (c *GraphClient) appsURL(path string, q url.Values) string {
	u := c.base + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func listQuery(opts ListOptions) url.Values {
	q := url.Values{}
	q.Set("$select", "id,appId,displayName")
	if opts.Filter != "" {
		q.Set("$filter", opts.Filter)
	}
	if opts.Eventual {
		q.Set("$count", "true")
		q.Set("$orderby", "displayName")
	}
	if opts.Top > 0 {
		q.Set("$top", strconv.Itoa(opts.Top))
	}
	return q
}

// list pages through a collection endpoint until exhausted or opts.Top is
// reached.
func (c *GraphClient) list(ctx context.Context, path string, opts ListOptions) ([]AppSummary, error) {
	next := c.appsURL(path, listQuery(opts))

	var out []AppSummary
	for next != "" {
		data, err := c.do(ctx, http.MethodGet, next, nil, opts.Eventual)
		if err != nil {
			return nil, err
		}
		var env listEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, NewError(CodeGeneric, "decode listing: %v", err)
		}
		var page []AppSummary
		if err := json.Unmarshal(env.Value, &page); err != nil {
			return nil, NewError(CodeGeneric, "decode listing page: %v", err)
		}
		out = append(out, page...)
		if opts.Top > 0 && len(out) >= opts.Top {
			return out[:opts.Top], nil
		}
		next = env.NextLink
	}
	return out, nil
}

func (c *GraphClient) count(ctx context.Context, path string) (int, error) {
	// $count endpoints always require the eventually consistent path.
	data, err := c.do(ctx, http.MethodGet, c.base+path, nil, true)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, NewError(CodeGeneric, "decode count %q: %v", string(data), err)
	}
	return n, nil
}

// CountOwned implements Client.
func (c *GraphClient) CountOwned(ctx context.Context, _ ListOptions) (int, error) {
	return c.count(ctx, "/me/ownedObjects/microsoft.graph.application/$count")
}

// CountAll implements Client.
func (c *GraphClient) CountAll(ctx context.Context, _ ListOptions) (int, error) {
	return c.count(ctx, "/applications/$count")
}

// ListOwned implements Client.
func (c *GraphClient) ListOwned(ctx context.Context, opts ListOptions) ([]AppSummary, error) {
	return c.list(ctx, "/me/ownedObjects/microsoft.graph.application", opts)
}

// ListAll implements Client.
func (c *GraphClient) ListAll(ctx context.Context, opts ListOptions) ([]AppSummary, error) {
	return c.list(ctx, "/applications", opts)
}

// ListDeleted implements Client.
func (c *GraphClient) ListDeleted(ctx context.Context, opts ListOptions) ([]AppSummary, error) {
	q := listQuery(opts)
	q.Set("$select", "id,appId,displayName,deletedDateTime")
	next := c.appsURL("/directory/deletedItems/microsoft.graph.application", q)

	data, err := c.do(ctx, http.MethodGet, next, nil, opts.Eventual)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, NewError(CodeGeneric, "decode deleted listing: %v", err)
	}
	var out []AppSummary
	if err := json.Unmarshal(env.Value, &out); err != nil {
		return nil, NewError(CodeGeneric, "decode deleted listing: %v", err)
	}
	return out, nil
}

// GetPartial implements Client.
func (c *GraphClient) GetPartial(ctx context.Context, objectID string, fields []string, expandOwners bool) (*Application, error) {
	q := url.Values{}
	if len(fields) > 0 {
		q.Set("$select", strings.Join(fields, ","))
	}
	if expandOwners {
		q.Set("$expand", "owners($select="+ownerSelect+")")
	}

	data, err := c.do(ctx, http.MethodGet, c.appsURL("/applications/"+url.PathEscape(objectID), q), nil, false)
	if err != nil {
		return nil, err
	}
	var app Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, NewError(CodeGeneric, "decode application: %v", err)
	}
	return &app, nil
}

// GetOwners implements Client.
func (c *GraphClient) GetOwners(ctx context.Context, objectID string) ([]User, error) {
	q := url.Values{}
	q.Set("$select", ownerSelect)
	data, err := c.do(ctx, http.MethodGet, c.appsURL("/applications/"+url.PathEscape(objectID)+"/owners", q), nil, false)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, NewError(CodeGeneric, "decode owners: %v", err)
	}
	var owners []User
	if err := json.Unmarshal(env.Value, &owners); err != nil {
		return nil, NewError(CodeGeneric, "decode owners: %v", err)
	}
	return owners, nil
}

// Update implements Client.
func (c *GraphClient) Update(ctx context.Context, objectID string, patch map[string]any) error {
	_, err := c.do(ctx, http.MethodPatch, c.appsURL("/applications/"+url.PathEscape(objectID), nil), patch, false)
	return err
}

// AddPassword implements Client.
func (c *GraphClient) AddPassword(ctx context.Context, objectID, displayName string, end time.Time) (*PasswordCredential, error) {
	body := map[string]any{
		"passwordCredential": map[string]any{
			"displayName": displayName,
			"endDateTime": end.UTC().Format(time.RFC3339),
		},
	}
	data, err := c.do(ctx, http.MethodPost, c.appsURL("/applications/"+url.PathEscape(objectID)+"/addPassword", nil), body, false)
	if err != nil {
		return nil, err
	}
	var cred PasswordCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, NewError(CodeGeneric, "decode credential: %v", err)
	}
	return &cred, nil
}

// RemovePassword implements Client.
func (c *GraphClient) RemovePassword(ctx context.Context, objectID, keyID string) error {
	body := map[string]any{"keyId": keyID}
	_, err := c.do(ctx, http.MethodPost, c.appsURL("/applications/"+url.PathEscape(objectID)+"/removePassword", nil), body, false)
	return err
}

// RemoveKey implements Client. The directory has no removal action for
// certificates, so this reads the current set and patches it back without
// the target key.
func (c *GraphClient) RemoveKey(ctx context.Context, objectID, keyID string) error {
	app, err := c.GetPartial(ctx, objectID, []string{"id", FieldKeyCredentials}, false)
	if err != nil {
		return err
	}
	kept := make([]KeyCredential, 0, len(app.KeyCredentials))
	for _, kc := range app.KeyCredentials {
		if kc.KeyID != keyID {
			kept = append(kept, kc)
		}
	}
	if len(kept) == len(app.KeyCredentials) {
		return NewError(CodeNotFound, "certificate %s not present on %s", keyID, objectID)
	}
	return c.Update(ctx, objectID, map[string]any{"keyCredentials": kept})
}

// AddOwner implements Client.
func (c *GraphClient) AddOwner(ctx context.Context, objectID, userObjectID string) error {
	body := map[string]any{
		"@odata.id": fmt.Sprintf("%s/directoryObjects/%s", c.base, userObjectID),
	}
	_, err := c.do(ctx, http.MethodPost, c.appsURL("/applications/"+url.PathEscape(objectID)+"/owners/$ref", nil), body, false)
	return err
}

// RemoveOwner implements Client.
func (c *GraphClient) RemoveOwner(ctx context.Context, objectID, userObjectID string) error {
	path := "/applications/" + url.PathEscape(objectID) + "/owners/" + url.PathEscape(userObjectID) + "/$ref"
	_, err := c.do(ctx, http.MethodDelete, c.appsURL(path, nil), nil, false)
	return err
}

// Delete implements Client.
func (c *GraphClient) Delete(ctx context.Context, objectID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.appsURL("/applications/"+url.PathEscape(objectID), nil), nil, false)
	return err
}

// Restore implements Client.
func (c *GraphClient) Restore(ctx context.Context, objectID string) error {
	_, err := c.do(ctx, http.MethodPost, c.appsURL("/directory/deletedItems/"+url.PathEscape(objectID)+"/restore", nil), nil, false)
	return err
}

var _ Client = (*GraphClient)(nil)
