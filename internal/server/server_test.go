package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/potluck/internal/config"
	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

type testEnv struct {
	handler http.Handler
	db      *sql.DB
	ids     map[string]int64
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		SearchMode:        "browse",
		SearchLookupLimit: 1,
		SearchBrowseLimit: 500,
		NotificationLimit: 50,
		LoginRateLimit:    3,
		CORSOrigins:       []string{"http://localhost:5173"},
		CatalogMaxAge:     time.Hour,
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	ingredients := store.NewIngredientStore(db)
	_, err = ingredients.Upsert(ctx, []model.Ingredient{
		{ProductID: "p-milk", Name: "Milk", Aisle: "B2", Category: "Dairy", PriceCents: 349, Dietary: model.Dietary{Dairy: true}},
		{ProductID: "p-bmilk", Name: "Buttermilk", Aisle: "B2", Category: "Dairy", PriceCents: 229},
		{ProductID: "p-rice", Name: "Jasmine Rice", Aisle: "A1", PriceCents: 899},
		{ProductID: "p-lime", Name: "Limes", Aisle: "Produce", PriceCents: 50},
	})
	require.NoError(t, err)

	ids := map[string]int64{}
	all, err := ingredients.All(ctx)
	require.NoError(t, err)
	for _, ing := range all {
		ids[ing.ProductID] = ing.ID
	}

	_, err = store.NewOrganizerStore(db).Create(ctx, "organizer", "s3cret")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, testConfig(), logger)
	return &testEnv{handler: srv.Router(), db: db, ids: ids}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/v1/organizer_session", "", map[string]string{"username": "organizer", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Token, 64)
	require.Equal(t, "organizer", resp.Username)
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

type item map[string]any

func (e *testEnv) createSubmission(t *testing.T, team, dish, phone string, items ...item) model.SubmissionView {
	t.Helper()
	rec := e.do(t, "POST", "/api/v1/submissions", "", map[string]any{
		"team_name":    team,
		"dish_name":    dish,
		"members":      []string{team + " lead", team + " cook"},
		"phone_number": phone,
		"ingredients":  items,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		Submission model.SubmissionView `json:"submission"`
	}](t, rec).Submission
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)

	rec := e.do(t, "GET", "/up", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = e.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `potluck_http_requests_total{method="GET",route="GET /up",status="200"} 1`)
}

func TestIngredientEndpoints(t *testing.T) {
	e := setup(t)

	rec := e.do(t, "GET", "/api/v1/ingredients?q=m", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = e.do(t, "GET", "/api/v1/ingredients?q=MILK", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]model.IngredientView](t, rec)
	require.Len(t, found, 2)
	require.Equal(t, "Milk", found[0].Name)
	require.Equal(t, "Buttermilk", found[1].Name)
	require.Equal(t, "3.49", found[0].Price.String())
	require.NotNil(t, found[0].Dietary)
	require.True(t, found[0].Dietary.Dairy)

	rec = e.do(t, "GET", "/api/v1/ingredients?q=milk&limit_mode=lookup", "", nil)
	require.Len(t, decode[[]model.IngredientView](t, rec), 1)

	rec = e.do(t, "GET", "/api/v1/ingredients?q=milk&limit_mode=everything", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, "GET", "/api/v1/ingredients/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	all := decode[[]model.IngredientView](t, rec)
	require.Len(t, all, 4)
	require.Equal(t, "Buttermilk", all[0].Name)

	rec = e.do(t, "GET", "/api/v1/ingredients/999", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not found", errorMessage(t, rec))

	rec = e.do(t, "GET", "/api/v1/ingredients/"+itoa(e.ids["p-rice"]), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rice := decode[model.IngredientView](t, rec)
	require.Nil(t, rice.Category)
	require.Equal(t, "A1", *rice.Aisle)
}

func TestOrganizerSession(t *testing.T) {
	e := setup(t)

	rec := e.do(t, "GET", "/api/v1/grocery_list", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, "POST", "/api/v1/organizer_session", "", map[string]string{"username": "organizer", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid credentials", errorMessage(t, rec))

	rec = e.do(t, "POST", "/api/v1/organizer_session", "", map[string]string{"username": "organizer"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "password is required", errorMessage(t, rec))

	token := e.login(t)
	rec = e.do(t, "GET", "/api/v1/grocery_list", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "DELETE", "/api/v1/organizer_session", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, "GET", "/api/v1/grocery_list", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	e := setup(t)
	creds := map[string]string{"username": "organizer", "password": "wrong"}
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusUnauthorized, e.do(t, "POST", "/api/v1/organizer_session", "", creds).Code)
	}
	rec := e.do(t, "POST", "/api/v1/organizer_session", "", creds)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSubmissionsAndGroceryList(t *testing.T) {
	e := setup(t)
	milk, rice, lime := e.ids["p-milk"], e.ids["p-rice"], e.ids["p-lime"]

	first := e.createSubmission(t, "Blue", "Curry", "+1 (202) 555-0147",
		item{"ingredient_id": milk, "quantity": 2}, item{"ingredient_id": rice, "quantity": 1})
	require.Len(t, first.Ingredients, 2)
	require.Equal(t, []string{"Blue lead", "Blue cook"}, first.Members)
	e.createSubmission(t, "Red", "Flan", "", item{"ingredient_id": milk, "quantity": 3})

	token := e.login(t)
	rec := e.do(t, "GET", "/api/v1/grocery_list", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.GroceryList](t, rec)
	require.Equal(t, []string{"A1", "B2"}, []string{list.Aisles[0].Aisle, list.Aisles[1].Aisle})
	milkItem, ok := list.Item(milk)
	require.True(t, ok)
	require.Equal(t, 5, milkItem.AggregatedQuantity)
	require.Equal(t, 5, milkItem.TotalQuantity)
	require.ElementsMatch(t, []string{"Blue", "Red"}, milkItem.Teams)
	require.Nil(t, milkItem.Ingredient.Dietary)
	require.Equal(t, int64(5*349+899), list.TotalCents)

	// Override precedence and clearing.
	rec = e.do(t, "PATCH", "/api/v1/grocery_list/"+itoa(milk), token, map[string]any{"quantity": 3, "checked": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payload := decode[map[string]any](t, rec)
	require.Equal(t, true, payload["checked"])
	require.Equal(t, "organizer", payload["checked_by"])
	require.EqualValues(t, 3, payload["quantity_override"])

	rec = e.do(t, "PATCH", "/api/v1/grocery_list/"+itoa(milk), token, map[string]any{"checked": true})
	require.Equal(t, http.StatusOK, rec.Code)

	list = decode[model.GroceryList](t, e.do(t, "GET", "/api/v1/grocery_list", token, nil))
	milkItem, _ = list.Item(milk)
	require.Equal(t, 3, milkItem.TotalQuantity)
	require.Equal(t, 5, milkItem.AggregatedQuantity)
	require.Equal(t, int64(3*349), milkItem.LineTotalCents)

	rec = e.do(t, "PATCH", "/api/v1/grocery_list/"+itoa(milk), token, map[string]any{"quantity": -1})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = e.do(t, "PATCH", "/api/v1/grocery_list/999", token, map[string]any{"checked": true})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, "DELETE", "/api/v1/grocery_list/"+itoa(milk)+"/override", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[model.GroceryList](t, e.do(t, "GET", "/api/v1/grocery_list", token, nil))
	milkItem, _ = list.Item(milk)
	require.Equal(t, 5, milkItem.TotalQuantity)
	require.True(t, milkItem.Checked)

	// Organizer ad-hoc add.
	rec = e.do(t, "POST", "/api/v1/grocery_list/items", token, map[string]any{"ingredient_id": lime, "quantity": 6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[model.GroceryListItem](t, rec)
	require.Equal(t, 6, added.TotalQuantity)
	require.Equal(t, []string{model.OrganizerTeamName}, added.Teams)

	rec = e.do(t, "POST", "/api/v1/grocery_list/items", token, map[string]any{"quantity": 6})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "ingredient_id is required", errorMessage(t, rec))

	// Notifications recorded for each mutation, newest first.
	rec = e.do(t, "GET", "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]model.Notification](t, rec)
	require.NotEmpty(t, notes)
	require.Equal(t, model.EventGroceryItemAdded, notes[0].EventType)
	require.Equal(t, "6 items added · by organizer", notes[0].Message)
	require.Equal(t, model.EventNewSubmission, notes[len(notes)-1].EventType)
	require.Equal(t, "SUBMISSION — Curry", notes[len(notes)-1].Title)

	rec = e.do(t, "PATCH", "/api/v1/notifications/mark_all_read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	notes = decode[[]model.Notification](t, e.do(t, "GET", "/api/v1/notifications", token, nil))
	for _, n := range notes {
		require.True(t, n.Read)
	}
}

func TestSubmissionUpdate(t *testing.T) {
	e := setup(t)
	milk, rice, lime := e.ids["p-milk"], e.ids["p-rice"], e.ids["p-lime"]
	sub := e.createSubmission(t, "Blue", "Curry", "2025550147",
		item{"ingredient_id": milk, "quantity": 2}, item{"ingredient_id": rice, "quantity": 1})
	path := "/api/v1/submissions/" + itoa(sub.ID)

	// Participant edit: members omitted are kept.
	rec := e.do(t, "PATCH", path, "", map[string]any{
		"team_name":   "Blue",
		"dish_name":   "Green Curry",
		"ingredients": []item{{"ingredient_id": milk, "quantity": 2}, {"ingredient_id": lime, "quantity": 4}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.SubmissionView](t, rec)
	require.Equal(t, "Green Curry", updated.DishName)
	require.Equal(t, []string{"Blue lead", "Blue cook"}, updated.Members)
	got := map[int64]int{}
	for _, li := range updated.Ingredients {
		got[li.Ingredient.ID] = li.Quantity
	}
	require.Equal(t, map[int64]int{milk: 2, lime: 4}, got)

	// Organizer edit without ingredients leaves line items alone.
	token := e.login(t)
	rec = e.do(t, "PATCH", path, token, map[string]any{"team_name": "Blue", "dish_name": "Green Curry", "notes": "mild"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[model.SubmissionView](t, rec).Ingredients, 2)

	notes := decode[[]model.Notification](t, e.do(t, "GET", "/api/v1/notifications", token, nil))
	require.Equal(t, model.EventSubmissionUpdatedOrganizer, notes[0].EventType)
	require.Equal(t, "by Organizer · Details updated", notes[0].Message)
	require.Equal(t, model.EventSubmissionUpdatedUser, notes[1].EventType)
	require.Equal(t, "by Blue lead · 1 item added, 1 item removed", notes[1].Message)

	rec = e.do(t, "PATCH", path, "", map[string]any{"dish_name": " "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Dish name can't be blank", errorMessage(t, rec))

	rec = e.do(t, "PATCH", "/api/v1/submissions/999", "", map[string]any{"dish_name": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionErrors(t *testing.T) {
	e := setup(t)

	rec := e.do(t, "POST", "/api/v1/submissions", "", map[string]any{"team_name": "Blue"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Dish name can't be blank", errorMessage(t, rec))

	rec = e.do(t, "POST", "/api/v1/submissions", "", map[string]any{
		"dish_name":   "Curry",
		"ingredients": []item{{"ingredient_id": e.ids["p-milk"]}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Quantity must be greater than 0", errorMessage(t, rec))

	rec = e.do(t, "POST", "/api/v1/submissions", "", map[string]any{
		"dish_name":   "Curry",
		"ingredients": []item{{"ingredient_id": 999, "quantity": 1}},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, "POST", "/api/v1/submissions", "", map[string]any{
		"dish_name":   "Curry",
		"ingredients": []item{{"quantity": 1}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "ingredient_id is required", errorMessage(t, rec))

	req := httptest.NewRequest("POST", "/api/v1/submissions", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Invalid request body", errorMessage(t, rec))

	// Nothing was written by the failed attempts.
	token := e.login(t)
	require.JSONEq(t, `[]`, e.do(t, "GET", "/api/v1/submissions", token, nil).Body.String())
}

func TestSubmissionLookupAndLifecycle(t *testing.T) {
	e := setup(t)
	milk := e.ids["p-milk"]
	sub := e.createSubmission(t, "Blue", "Curry", "+1 (202) 555-0147", item{"ingredient_id": milk, "quantity": 2})

	for _, phone := range []string{"2025550147", "12025550147"} {
		rec := e.do(t, "GET", "/api/v1/submissions/lookup?phone="+phone, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, phone)
		require.Equal(t, sub.ID, decode[struct {
			Submission model.SubmissionView `json:"submission"`
		}](t, rec).Submission.ID)
	}
	rec := e.do(t, "GET", "/api/v1/submissions/lookup?phone=5550147", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No submission found for that phone number", errorMessage(t, rec))
	rec = e.do(t, "GET", "/api/v1/submissions/lookup?phone=12-34", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Phone required", errorMessage(t, rec))

	// Organizer-only routes.
	path := "/api/v1/submissions/" + itoa(sub.ID)
	require.Equal(t, http.StatusUnauthorized, e.do(t, "GET", path, "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, e.do(t, "DELETE", path, "", nil).Code)

	token := e.login(t)
	rec = e.do(t, "GET", path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Incremental line item changes.
	rice := e.ids["p-rice"]
	rec = e.do(t, "POST", path+"/ingredients", token, map[string]any{"ingredient_id": rice})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[model.SubmissionView](t, rec).Ingredients, 2)

	rec = e.do(t, "PATCH", path+"/ingredients/"+itoa(milk), token, map[string]any{"quantity": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, li := range decode[model.SubmissionView](t, rec).Ingredients {
		if li.Ingredient.ID == milk {
			require.Equal(t, 7, li.Quantity)
		}
	}

	rec = e.do(t, "PATCH", path+"/ingredients/"+itoa(milk), token, map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	remaining := decode[model.SubmissionView](t, rec).Ingredients
	require.Len(t, remaining, 1)
	require.Equal(t, rice, remaining[0].Ingredient.ID)

	rec = e.do(t, "PATCH", path+"/ingredients/"+itoa(milk), token, map[string]any{"quantity": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, "DELETE", path, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, http.StatusNotFound, e.do(t, "GET", path, token, nil).Code)
	require.Equal(t, http.StatusNotFound, e.do(t, "DELETE", path, token, nil).Code)

	notes := decode[[]model.Notification](t, e.do(t, "GET", "/api/v1/notifications", token, nil))
	require.Equal(t, "DELETION — Curry", notes[0].Title)
	require.Equal(t, "by Blue lead, Blue cook", notes[0].Message)
	require.Equal(t, model.EventIngredientRemoved, notes[1].EventType)
}

func TestKitchenResources(t *testing.T) {
	e := setup(t)

	rec := e.do(t, "POST", "/api/v1/kitchen_resources", "", map[string]any{"kind": "fridge", "name": "Garage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.login(t)
	rec = e.do(t, "POST", "/api/v1/kitchen_resources", token, map[string]any{"kind": "fridge", "name": "Garage"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	garage := decode[model.KitchenResource](t, rec)
	require.Equal(t, 1, garage.Position)
	require.Nil(t, garage.PointPerson)

	rec = e.do(t, "POST", "/api/v1/kitchen_resources", token, map[string]any{"kind": "fridge", "name": "Basement", "point_person": "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 2, decode[model.KitchenResource](t, rec).Position)

	rec = e.do(t, "POST", "/api/v1/kitchen_resources", token, map[string]any{"kind": "oven", "name": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "Kind is not included in the list", errorMessage(t, rec))

	rec = e.do(t, "PATCH", "/api/v1/kitchen_resources/"+itoa(garage.ID), token, map[string]any{"position": 5, "is_driver": true})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[model.KitchenResource](t, rec)
	require.Equal(t, 5, moved.Position)
	require.Equal(t, "Garage", moved.Name)

	rec = e.do(t, "GET", "/api/v1/kitchen_resources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.KitchenResource](t, rec)
	require.Len(t, list, 2)
	require.Equal(t, "Basement", list[0].Name)

	require.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/api/v1/kitchen_resources/"+itoa(garage.ID), token, nil).Code)
	require.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/api/v1/kitchen_resources/"+itoa(garage.ID), token, nil).Code)
	require.Equal(t, http.StatusNotFound, e.do(t, "PATCH", "/api/v1/kitchen_resources/"+itoa(garage.ID), token, map[string]any{"name": "x"}).Code)
}

func TestCORSPreflight(t *testing.T) {
	e := setup(t)
	req := httptest.NewRequest("OPTIONS", "/api/v1/grocery_list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
