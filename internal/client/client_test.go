package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/potluck/internal/config"
	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/server"
	"github.com/dukerupert/potluck/internal/store"
)

func TestDoReauthenticatesOnce(t *testing.T) {
	var logins, calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/organizer_session", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh", "username": "organizer"})
	})
	mux.HandleFunc("GET /api/v1/kitchen_resources", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`[]`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(Session{BaseURL: ts.URL + "/", Token: "stale", Username: "organizer", Password: "pw"}, nil)
	resources, err := c.KitchenResources(context.Background())
	require.NoError(t, err)
	require.Empty(t, resources)
	require.EqualValues(t, 1, logins.Load())
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, "fresh", c.Session().Token)
}

func TestDoRetriesAtMostOnce(t *testing.T) {
	var logins, calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/organizer_session", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"token": "still-bad"})
	})
	mux.HandleFunc("GET /api/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(Session{BaseURL: ts.URL, Username: "organizer", Password: "pw"}, nil)
	_, err := c.Notifications(context.Background())
	require.True(t, IsStatus(err, http.StatusUnauthorized))
	require.EqualValues(t, 1, logins.Load())
	require.EqualValues(t, 2, calls.Load())
}

func TestDoWithoutCredentialsDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer ts.Close()

	c := New(Session{BaseURL: ts.URL, Token: "stale"}, nil)
	_, err := c.GroceryList(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Unauthorized", apiErr.Message)
	require.EqualValues(t, 1, calls.Load())
}

func TestLoginWithoutCredentials(t *testing.T) {
	c := New(Session{BaseURL: "http://127.0.0.1:0"}, nil)
	require.Error(t, c.Login(context.Background()))
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "api: status 404: Not found", (&Error{Status: 404, Message: "Not found"}).Error())
	require.Equal(t, "api: status 502", (&Error{Status: 502}).Error())
}

// newAPI starts the real HTTP stack over an in-memory database. opts adjust
// the server configuration.
func newAPI(t *testing.T, opts ...func(*config.Config)) (*httptest.Server, map[string]int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ids := seed(t, db)
	cfg := &config.Config{
		SearchMode:        "browse",
		SearchLookupLimit: 20,
		SearchBrowseLimit: 500,
		NotificationLimit: 50,
		LoginRateLimit:    10,
		CatalogMaxAge:     time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.New(db, cfg, logger).Router())
	t.Cleanup(ts.Close)
	return ts, ids
}

func seed(t *testing.T, db *sql.DB) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	ingredients := store.NewIngredientStore(db)
	_, err := ingredients.Upsert(ctx, []model.Ingredient{
		{ProductID: "p-milk", Name: "Milk", Aisle: "B2", PriceCents: 349},
		{ProductID: "p-bmilk", Name: "Buttermilk", Aisle: "B2", PriceCents: 229},
		{ProductID: "p-rice", Name: "Jasmine Rice", Aisle: "A1", PriceCents: 899},
	})
	require.NoError(t, err)
	_, err = store.NewOrganizerStore(db).Create(ctx, "organizer", "s3cret")
	require.NoError(t, err)

	all, err := ingredients.All(ctx)
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, ing := range all {
		ids[ing.ProductID] = ing.ID
	}
	return ids
}

func TestClientAgainstServer(t *testing.T) {
	ts, ids := newAPI(t)
	ctx := context.Background()
	milk, rice := ids["p-milk"], ids["p-rice"]

	guest := New(Session{BaseURL: ts.URL}, ts.Client())
	sub, err := guest.CreateSubmission(ctx, SubmissionInput{
		SubmissionFields: model.SubmissionFields{TeamName: "Blue", DishName: "Curry", PhoneNumber: "202-555-0147"},
		Ingredients:      []LineItemInput{{IngredientID: milk, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, sub.Ingredients, 1)

	found, err := guest.LookupSubmission(ctx, "202-555-0147")
	require.NoError(t, err)
	require.Equal(t, sub.ID, found.ID)

	missing, err := guest.LookupSubmission(ctx, "999-555-0000")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = guest.GroceryList(ctx)
	require.True(t, IsStatus(err, http.StatusUnauthorized))

	// The organizer client logs in on demand.
	org := New(Session{BaseURL: ts.URL, Username: "organizer", Password: "s3cret"}, ts.Client())
	list, err := org.GroceryList(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, org.Session().Token)
	item, ok := list.Item(milk)
	require.True(t, ok)
	require.Equal(t, 2, item.TotalQuantity)

	checked, qty := true, 4
	checkin, err := org.UpdateCheckin(ctx, milk, model.CheckinUpdate{Checked: &checked, Quantity: &qty})
	require.NoError(t, err)
	require.True(t, checkin.Checked)
	require.Equal(t, 4, *checkin.QuantityOverride)

	added, err := org.AddGroceryItem(ctx, rice, 1)
	require.NoError(t, err)
	require.Equal(t, rice, added.Ingredient.ID)

	require.NoError(t, org.ClearOverride(ctx, milk))
	list, err = org.GroceryList(ctx)
	require.NoError(t, err)
	item, _ = list.Item(milk)
	require.Equal(t, 2, item.TotalQuantity)
	require.Equal(t, []string{"A1", "B2"}, []string{list.Aisles[0].Aisle, list.Aisles[1].Aisle})

	// Nil ingredients keep the stored line items.
	updated, err := org.UpdateSubmission(ctx, sub.ID, SubmissionInput{
		SubmissionFields: model.SubmissionFields{TeamName: "Blue", DishName: "Green curry"},
	})
	require.NoError(t, err)
	require.Equal(t, "Green curry", updated.DishName)
	require.Len(t, updated.Ingredients, 1)

	// The organizer bucket holding the added rice is listed too, newest first.
	subs, err := org.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, model.OrganizerDishName, subs[0].DishName)
	require.Equal(t, sub.ID, subs[1].ID)

	require.NoError(t, org.DeleteSubmission(ctx, sub.ID))
	require.True(t, IsStatus(org.DeleteSubmission(ctx, sub.ID), http.StatusNotFound))

	require.NoError(t, org.Logout(ctx))
	require.Empty(t, org.Session().Token)
}
