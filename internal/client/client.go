// Package client is a Go client for the potluck HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/search"
)

// Session identifies the API and the organizer acting through it. An empty
// Token is an anonymous participant. Username and Password, when set, let
// the client log in again after its token is rejected.
type Session struct {
	BaseURL  string
	Token    string
	Username string
	Password string
}

func (s Session) canReauthenticate() bool {
	return s.Username != "" && s.Password != ""
}

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an API error with the given status.
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

type Client struct {
	mu         sync.RWMutex
	session    Session
	httpClient *http.Client
}

// New creates a client for session. A nil httpClient gets a default with a
// ten second timeout.
func New(session Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	session.BaseURL = strings.TrimRight(session.BaseURL, "/")
	return &Client{session: session, httpClient: httpClient}
}

// Session returns the current session, including any token obtained by
// logging in.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login exchanges the session credentials for a token and stores it in
// the session.
func (c *Client) Login(ctx context.Context) error {
	s := c.Session()
	if !s.canReauthenticate() {
		return errors.New("login: session has no credentials")
	}
	body := map[string]string{"username": s.Username, "password": s.Password}
	var resp loginResponse
	if err := c.send(ctx, s, http.MethodPost, "/api/v1/organizer_session", nil, body, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.mu.Lock()
	c.session.Token = resp.Token
	c.mu.Unlock()
	return nil
}

// Logout revokes the session token.
func (c *Client) Logout(ctx context.Context) error {
	s := c.Session()
	if err := c.send(ctx, s, http.MethodDelete, "/api/v1/organizer_session", nil, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.mu.Lock()
	c.session.Token = ""
	c.mu.Unlock()
	return nil
}

// do sends one API request. When the API answers 401 and the session
// carries credentials, it logs in again and retries exactly once.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	s := c.Session()
	err := c.send(ctx, s, method, path, query, body, out)
	if !IsStatus(err, http.StatusUnauthorized) || !s.canReauthenticate() {
		return err
	}
	if lerr := c.Login(ctx); lerr != nil {
		return lerr
	}
	return c.send(ctx, c.Session(), method, path, query, body, out)
}

func (c *Client) send(ctx context.Context, s Session, method, path string, query url.Values, body, out any) error {
	u := s.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		return &Error{Status: resp.StatusCode, Message: eb.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func idPath(format string, ids ...int64) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf(format, args...)
}

func ingredients(views []model.IngredientView) []model.Ingredient {
	out := make([]model.Ingredient, len(views))
	for i, v := range views {
		out[i] = v.Ingredient()
	}
	return out
}

// SearchIngredients runs a server-side catalog search. An empty mode uses
// the server default.
func (c *Client) SearchIngredients(ctx context.Context, q string, mode search.Mode) ([]model.Ingredient, error) {
	query := url.Values{"q": {q}}
	if mode != "" {
		query.Set("limit_mode", string(mode))
	}
	var views []model.IngredientView
	if err := c.do(ctx, http.MethodGet, "/api/v1/ingredients", query, nil, &views); err != nil {
		return nil, err
	}
	return ingredients(views), nil
}

// AllIngredients downloads the whole catalog ordered by name.
func (c *Client) AllIngredients(ctx context.Context) ([]model.Ingredient, error) {
	var views []model.IngredientView
	if err := c.do(ctx, http.MethodGet, "/api/v1/ingredients/all", nil, nil, &views); err != nil {
		return nil, err
	}
	return ingredients(views), nil
}

func (c *Client) Ingredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	var v model.IngredientView
	if err := c.do(ctx, http.MethodGet, idPath("/api/v1/ingredients/%s", id), nil, nil, &v); err != nil {
		return nil, err
	}
	ing := v.Ingredient()
	return &ing, nil
}

type LineItemInput struct {
	IngredientID int64 `json:"ingredient_id"`
	Quantity     int   `json:"quantity"`
}

// SubmissionInput is the body of create and update. On update, nil Members
// keeps the stored members and nil Ingredients keeps the stored line items.
type SubmissionInput struct {
	model.SubmissionFields
	Ingredients []LineItemInput `json:"ingredients"`
}

type submissionEnvelope struct {
	Submission model.SubmissionView `json:"submission"`
}

func (c *Client) CreateSubmission(ctx context.Context, in SubmissionInput) (*model.SubmissionView, error) {
	var env submissionEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions", nil, in, &env); err != nil {
		return nil, err
	}
	return &env.Submission, nil
}

// LookupSubmission finds the submission registered with phone. It returns
// nil when none matches.
func (c *Client) LookupSubmission(ctx context.Context, phone string) (*model.SubmissionView, error) {
	var env submissionEnvelope
	err := c.do(ctx, http.MethodGet, "/api/v1/submissions/lookup", url.Values{"phone": {phone}}, nil, &env)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &env.Submission, nil
}

func (c *Client) Submissions(ctx context.Context) ([]model.SubmissionView, error) {
	var subs []model.SubmissionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions", nil, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *Client) UpdateSubmission(ctx context.Context, id int64, in SubmissionInput) (*model.SubmissionView, error) {
	var sub model.SubmissionView
	if err := c.do(ctx, http.MethodPatch, idPath("/api/v1/submissions/%s", id), nil, in, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) DeleteSubmission(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/v1/submissions/%s", id), nil, nil, nil)
}

func (c *Client) GroceryList(ctx context.Context) (model.GroceryList, error) {
	var list model.GroceryList
	err := c.do(ctx, http.MethodGet, "/api/v1/grocery_list", nil, nil, &list)
	return list, err
}

type checkinBody struct {
	Checked  *bool `json:"checked,omitempty"`
	Quantity *int  `json:"quantity,omitempty"`
}

// UpdateCheckin applies a partial override to one ingredient. The result
// carries only the override fields.
func (c *Client) UpdateCheckin(ctx context.Context, ingredientID int64, upd model.CheckinUpdate) (*model.GroceryCheckin, error) {
	var out model.GroceryCheckin
	body := checkinBody{Checked: upd.Checked, Quantity: upd.Quantity}
	if err := c.do(ctx, http.MethodPatch, idPath("/api/v1/grocery_list/%s", ingredientID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearOverride(ctx context.Context, ingredientID int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/v1/grocery_list/%s/override", ingredientID), nil, nil, nil)
}

func (c *Client) AddGroceryItem(ctx context.Context, ingredientID int64, qty int) (*model.GroceryListItem, error) {
	var item model.GroceryListItem
	body := LineItemInput{IngredientID: ingredientID, Quantity: qty}
	if err := c.do(ctx, http.MethodPost, "/api/v1/grocery_list/items", nil, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) KitchenResources(ctx context.Context) ([]model.KitchenResource, error) {
	var out []model.KitchenResource
	err := c.do(ctx, http.MethodGet, "/api/v1/kitchen_resources", nil, nil, &out)
	return out, err
}

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, nil, &out)
	return out, err
}
