package omero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/screendata/mihcsme/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second
	apiBase        = "/api/v0"
)

// ConnectParams describes an OMERO.web session to establish.
type ConnectParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Group    string
	Secure   bool
	Timeout  time.Duration
}

// baseURL renders the server root, e.g. "https://omero.example.org:4080".
func (p ConnectParams) baseURL() string {
	scheme := "https"
	if !p.Secure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

// Client is a session-holding OMERO.web JSON API client. It implements
// Gateway. The session is stateful on the server: callers own calling
// Close on every exit path.
type Client struct {
	http    *http.Client
	baseURL string
	csrf    string
	logger  *slog.Logger
}

// Connect establishes an authenticated session. Fails with a connection
// error when the server or the credentials are not usable.
func Connect(ctx context.Context, params ConnectParams, logger *slog.Logger) (*Client, error) {
	timeout := params.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create cookie jar")
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout, Jar: jar},
		baseURL: params.baseURL(),
		logger:  logger,
	}

	logger.Info("connecting to OMERO", "user", params.User, "host", params.Host, "port", params.Port)

	if err := c.fetchToken(ctx); err != nil {
		return nil, err
	}
	if err := c.login(ctx, params); err != nil {
		return nil, err
	}

	logger.Info("connected to OMERO", "user", params.User)
	return c, nil
}

// fetchToken obtains the CSRF token required by mutating requests.
func (c *Client) fetchToken(ctx context.Context) error {
	body, err := c.get(ctx, apiBase+"/token/", nil)
	if err != nil {
		return errors.Wrapf(err, errors.CodeConnection, "failed to reach OMERO server at %s", c.baseURL)
	}
	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data == "" {
		return errors.Connectionf("unexpected token response from %s", c.baseURL)
	}
	c.csrf = resp.Data
	return nil
}

// login authenticates the session, optionally switching the group
// context.
func (c *Client) login(ctx context.Context, params ConnectParams) error {
	form := url.Values{
		"username": {params.User},
		"password": {params.Password},
		"server":   {"1"},
	}
	if params.Group != "" {
		form.Set("group", params.Group)
	}

	body, err := c.postForm(ctx, apiBase+"/login/", form)
	if err != nil {
		return errors.Wrapf(err, errors.CodeConnection, "failed to connect to OMERO server at %s", c.baseURL)
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || !resp.Success {
		return errors.Connectionf("OMERO login failed for user %s", params.User)
	}
	return nil
}

// Close logs the session out. Safe to call once per connect.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
	defer cancel()
	if _, err := c.postForm(ctx, apiBase+"/logout/", url.Values{}); err != nil {
		c.logger.Warn("logout failed", "error", err)
		return err
	}
	return nil
}

// objectPaths maps object types to their REST collection segment.
//
//nolint:gochecknoglobals // Static lookup table
var objectPaths = map[string]string{
	TypeScreen: "screens",
	TypePlate:  "plates",
	TypeWell:   "wells",
}

// GetObject fetches a Screen, Plate or Well by id. Returns (nil, nil)
// when the server has no such object.
func (c *Client) GetObject(ctx context.Context, objType string, id int64) (Object, error) {
	segment, ok := objectPaths[objType]
	if !ok {
		return nil, errors.Validationf("unknown object type: %s", objType)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/m/%s/%d/", apiBase, segment, id), nil)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data rawObject `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "bad %s response", objType)
	}
	return resp.Data.toObject(c, objType), nil
}

// CreateMapAnnotation creates and links one map annotation.
func (c *Client) CreateMapAnnotation(ctx context.Context, objType string, id int64, pairs [][2]string, namespace string) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(pairs)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "failed to encode annotation pairs")
	}

	form := url.Values{
		"mapAnnotation": {string(payload)},
		"ns":            {namespace},
		strings.ToLower(objType): {strconv.FormatInt(id, 10)},
	}
	body, err := c.postForm(ctx, "/webclient/annotate_map/", form)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInternal, "failed to create annotation on %s %d", objType, id)
	}

	var resp struct {
		AnnID int64 `json:"annId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "bad annotation response")
	}
	c.logger.Debug("created map annotation", "id", resp.AnnID, "namespace", namespace, "pairs", len(pairs))
	return resp.AnnID, nil
}

// DeleteAnnotations removes annotations under the namespace prefix from
// an object. A missing object deletes nothing.
func (c *Client) DeleteAnnotations(ctx context.Context, objType string, id int64, nsPrefix string) (int, error) {
	anns, err := c.listAnnotations(ctx, objType, id)
	if errors.Is(err, errors.ErrNotFound) {
		c.logger.Warn("object not found for deletion", "type", objType, "id", id)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, ann := range anns {
		if nsPrefix != "" && !strings.HasPrefix(ann.Namespace, nsPrefix) {
			continue
		}
		form := url.Values{
			"parent": {strings.ToLower(objType) + "-" + strconv.FormatInt(id, 10)},
		}
		path := fmt.Sprintf("/webclient/action/delete/ann/%d/", ann.ID)
		if _, err := c.postForm(ctx, path, form); err != nil {
			return deleted, errors.Wrapf(err, errors.CodeInternal, "failed to delete annotation %d", ann.ID)
		}
		deleted++
	}
	return deleted, nil
}

// listAnnotations fetches the map annotations linked to an object.
func (c *Client) listAnnotations(ctx context.Context, objType string, id int64) ([]MapAnnotation, error) {
	query := url.Values{
		"type":                   {"map"},
		strings.ToLower(objType): {strconv.FormatInt(id, 10)},
	}
	body, err := c.get(ctx, "/webclient/api/annotations/", query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Annotations []struct {
			ID     int64       `json:"id"`
			NS     string      `json:"ns"`
			Values [][2]string `json:"values"`
		} `json:"annotations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "bad annotations response")
	}

	anns := make([]MapAnnotation, 0, len(resp.Annotations))
	for _, a := range resp.Annotations {
		anns = append(anns, MapAnnotation{ID: a.ID, Namespace: a.NS, Pairs: a.Values})
	}
	return anns, nil
}

// listChildren enumerates a screen's plates or a plate's wells.
func (c *Client) listChildren(ctx context.Context, objType string, id int64) ([]Object, error) {
	var path, childType string
	switch objType {
	case TypeScreen:
		path = fmt.Sprintf("%s/m/screens/%d/plates/", apiBase, id)
		childType = TypePlate
	case TypePlate:
		path = fmt.Sprintf("%s/m/plates/%d/wells/", apiBase, id)
		childType = TypeWell
	default:
		return nil, errors.Validationf("%s objects have no children", objType)
	}

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []rawObject `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "bad children response")
	}

	children := make([]Object, 0, len(resp.Data))
	for _, raw := range resp.Data {
		children = append(children, raw.toObject(c, childType))
	}
	return children, nil
}

// rawObject is the wire shape shared by screens, plates and wells.
type rawObject struct {
	ID     int64  `json:"@id"`
	Name   string `json:"Name"`
	Row    *int   `json:"Row"`
	Column *int   `json:"Column"`
}

func (r rawObject) toObject(c *Client, objType string) *remoteObject {
	obj := &remoteObject{client: c, objType: objType, id: r.ID, name: r.Name, row: -1, col: -1}
	if r.Row != nil {
		obj.row = *r.Row
	}
	if r.Column != nil {
		obj.col = *r.Column
	}
	return obj
}

// remoteObject implements Object over the HTTP client.
type remoteObject struct {
	client  *Client
	objType string
	id      int64
	name    string
	row     int
	col     int
}

func (o *remoteObject) ID() int64    { return o.id }
func (o *remoteObject) Name() string { return o.name }
func (o *remoteObject) Row() int     { return o.row }
func (o *remoteObject) Column() int  { return o.col }

func (o *remoteObject) ListChildren(ctx context.Context) ([]Object, error) {
	return o.client.listChildren(ctx, o.objType, o.id)
}

func (o *remoteObject) ListAnnotations(ctx context.Context) ([]MapAnnotation, error) {
	return o.client.listAnnotations(ctx, o.objType, o.id)
}

// get executes a GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// postForm executes a CSRF-protected form POST and returns the body.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", c.csrf)
	req.Header.Set("Referer", c.baseURL)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnection, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnection, "read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFoundf("%s returned 404", req.URL.Path)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.Connectionf("%s returned %d: session rejected", req.URL.Path, resp.StatusCode)
	default:
		return nil, errors.Internalf("unexpected status %d from %s: %s", resp.StatusCode, req.URL.Path, string(body))
	}
}
