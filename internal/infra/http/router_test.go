package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/internal/infra/http/handler"
	"github.com/caseaccessio/api/internal/infra/postgres"
	"github.com/caseaccessio/api/internal/infra/websocket"
	"github.com/caseaccessio/api/pkg/crypto"
	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/assignment"
	"github.com/caseaccessio/api/pkg/domain/association"
	"github.com/caseaccessio/api/pkg/domain/permission"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/eventstore"
	"github.com/caseaccessio/api/pkg/jwt"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/validator"
)

// --- in-memory fakes ---

type memAccessRepo struct {
	mu      sync.Mutex
	records map[access.Key]*access.Record
}

func newMemAccessRepo() *memAccessRepo {
	return &memAccessRepo{records: make(map[access.Key]*access.Record)}
}

func (r *memAccessRepo) Get(_ context.Context, key access.Key) (*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[key], nil
}

func (r *memAccessRepo) Put(_ context.Context, record *access.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key] = record
	return nil
}

func (r *memAccessRepo) Delete(_ context.Context, key access.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *memAccessRepo) FindByCase(_ context.Context, caseID shared.ID) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*access.Record
	for _, rec := range r.records {
		if rec.Key.CaseID.Equals(caseID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAccessRepo) FindExpired(_ context.Context) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*access.Record
	for _, rec := range r.records {
		if rec.Expired(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAccessRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for key, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, key)
			n++
		}
	}
	return n, nil
}

type memDirectory struct {
	users []*app.DirectoryUser
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*app.DirectoryUser, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (d *memDirectory) FindByID(_ context.Context, userID shared.ID) (*app.DirectoryUser, error) {
	for _, u := range d.users {
		if u.Details.UserID.Equals(userID) {
			return u, nil
		}
	}
	return nil, nil
}

type memClientStore struct {
	mu      sync.Mutex
	clients map[shared.ID]*postgres.DefenceClient
}

func newMemClientStore() *memClientStore {
	return &memClientStore{clients: make(map[shared.ID]*postgres.DefenceClient)}
}

func (s *memClientStore) Upsert(_ context.Context, client *postgres.DefenceClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
	return nil
}

func (s *memClientStore) Get(_ context.Context, id shared.ID) (*postgres.DefenceClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[id], nil
}

func (s *memClientStore) FindByCase(_ context.Context, caseID shared.ID) ([]*postgres.DefenceClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*postgres.DefenceClient
	for _, c := range s.clients {
		if c.CaseID.Equals(caseID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memClientStore) Exists(_ context.Context, id shared.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.clients[id]
	return ok, nil
}

// --- fixture ---

type routerFixture struct {
	router  http.Handler
	tokens  *jwt.Generator
	feedKey string
	users   *memDirectory
}

func newRouterFixture(t *testing.T, users ...*app.DirectoryUser) *routerFixture {
	t.Helper()

	log := logger.NewNop()
	store := eventstore.NewMemoryStore()
	repo := newMemAccessRepo()
	projector := access.NewService(repo, log)
	directory := &memDirectory{users: users}
	clients := newMemClientStore()

	assignments := app.NewAssignmentService(
		store, permission.DefaultAllowlist(), directory, projector, nil,
		access.ExpiresAfter(28*24*time.Hour), log)
	grants := app.NewGrantService(store, permission.DefaultAllowlist(), directory, clients, nil, log)
	associations := app.NewAssociationService(store, grants, nil, log)

	tokens := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               "router-test-secret-router-test-secret",
		Issuer:               "caseaccess-test",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	})

	feedKey, err := crypto.GenerateAPIKey("caf_")
	require.NoError(t, err)
	feedHash, err := crypto.HashAPIKey(feedKey)
	require.NoError(t, err)

	v := validator.New()
	hub := websocket.NewHub(log)
	router := NewRouter(Handlers{
		Health:        handler.NewHealthHandler(nil),
		Assignment:    handler.NewAssignmentHandler(assignments, v, log),
		Association:   handler.NewAssociationHandler(associations, v, log),
		Grant:         handler.NewGrantHandler(grants, v, log),
		Access:        handler.NewAccessHandler(projector, log),
		DefenceClient: handler.NewDefenceClientHandler(clients, nil, v, log),
		WebSocket:     websocket.NewHandler(hub, nil, log),
	}, RouterConfig{
		TokenValidator: tokens,
		FeedAPIKeyHash: feedHash,
	})

	return &routerFixture{router: router, tokens: tokens, feedKey: feedKey, users: directory}
}

func (f *routerFixture) tokenFor(t *testing.T, user *app.DirectoryUser) string {
	t.Helper()
	orgID := ""
	if user.Organisation != nil {
		orgID = user.Organisation.ID.String()
	}
	token, _, err := f.tokens.GenerateAccessToken(
		user.Details.UserID.String(), user.Email, "session", orgID, user.Groups)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) doFeed(method, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("X-API-Key", f.feedKey)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// commandResponse mirrors handler.CommandResponse with the event payloads
// left raw, since the envelope's Data field is an interface on the way out.
type commandResponse struct {
	Accepted bool `json:"accepted"`
	Events   []struct {
		Event   string          `json:"event"`
		Failure bool            `json:"failure"`
		Data    json.RawMessage `json:"data"`
	} `json:"events"`
}

func decodeCommand(t *testing.T, rec *httptest.ResponseRecorder) commandResponse {
	t.Helper()
	var resp commandResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func routerUser(email, first, last string, org *shared.Organisation, groups ...string) *app.DirectoryUser {
	return &app.DirectoryUser{
		Details:      shared.PersonDetails{UserID: shared.NewID(), FirstName: first, LastName: last},
		Email:        email,
		Groups:       groups,
		Organisation: org,
	}
}

// --- tests ---

func TestRouter_AssignmentFlow(t *testing.T) {
	chambers := shared.Organisation{ID: shared.NewID(), Name: "Chambers A"}
	advocate := routerUser("adv@example.com", "Ada", "Jones", &chambers, "Advocates")
	clerk := routerUser("clerk@example.com", "Cal", "Smith", &chambers, "Chambers Admin")
	f := newRouterFixture(t, advocate, clerk)
	caseID := shared.NewID()

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/cases/"+caseID.String()+"/assignments", "",
			map[string]any{"assignee_email": advocate.Email})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	token := f.tokenFor(t, clerk)

	t.Run("advocate assignment accepted", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/cases/"+caseID.String()+"/assignments", token,
			map[string]any{"assignee_email": advocate.Email})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decodeCommand(t, rec)
		assert.True(t, resp.Accepted)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, assignment.EventCaseAssignedToAdvocate, resp.Events[0].Event)
	})

	t.Run("access query shows advocate and organisation records", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/cases/"+caseID.String()+"/access", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data []handler.AccessRecordResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp.Data, 2)
	})

	t.Run("repeat assignment reports rejection", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/cases/"+caseID.String()+"/assignments", token,
			map[string]any{"assignee_email": advocate.Email})
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeCommand(t, rec)
		assert.False(t, resp.Accepted)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, assignment.EventUserAlreadyAssigned, resp.Events[0].Event)
	})

	t.Run("removal deletes records", func(t *testing.T) {
		rec := f.do(http.MethodDelete,
			"/api/v1/cases/"+caseID.String()+"/assignments/"+advocate.Details.UserID.String(), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeCommand(t, rec)
		assert.True(t, resp.Accepted)

		recAccess := f.do(http.MethodGet, "/api/v1/cases/"+caseID.String()+"/access", token, nil)
		var after struct {
			Data []handler.AccessRecordResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(recAccess.Body).Decode(&after))
		assert.Empty(t, after.Data)
	})

	t.Run("invalid email rejected with validation details", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/cases/"+caseID.String()+"/assignments", token,
			map[string]any{"assignee_email": "not-an-email"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed case id rejected", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/cases/not-a-uuid/assignments", token,
			map[string]any{"assignee_email": advocate.Email})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_FeedEndpoints(t *testing.T) {
	f := newRouterFixture(t)
	defendantID := shared.NewID()
	orgID := shared.NewID()

	repOrder := map[string]any{
		"defendant_id":        defendantID.String(),
		"organisation_id":     orgID.String(),
		"organisation_name":   "Firm B",
		"representation_type": "REPRESENTATION_ORDER",
		"laa_contract_number": "2F014B",
	}

	t.Run("missing api key rejected", func(t *testing.T) {
		data, _ := json.Marshal(repOrder)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/representation-orders", bytes.NewReader(data))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("representation order associates the organisation", func(t *testing.T) {
		rec := f.doFeed(http.MethodPost, "/api/v1/feed/representation-orders", repOrder)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeCommand(t, rec)
		assert.True(t, resp.Accepted)
		require.NotEmpty(t, resp.Events)
		names := make([]string, 0, len(resp.Events))
		for _, e := range resp.Events {
			names = append(names, e.Event)
		}
		assert.Contains(t, strings.Join(names, ","), association.EventDefenceOrganisationAssociated)
	})

	t.Run("defence client upsert then query", func(t *testing.T) {
		caseID := shared.NewID()
		clientID := shared.NewID()
		rec := f.doFeed(http.MethodPost, "/api/v1/feed/defence-clients", map[string]any{
			"id":         clientID.String(),
			"first_name": "Del",
			"last_name":  "Fendant",
			"case_id":    caseID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		org := shared.Organisation{ID: shared.NewID(), Name: "Firm C"}
		lawyer := routerUser("dl@example.com", "Dee", "Law", &org, "Defence Lawyers")
		f.users.users = append(f.users.users, lawyer)

		recGet := f.do(http.MethodGet, "/api/v1/cases/"+caseID.String()+"/defence-clients", f.tokenFor(t, lawyer), nil)
		require.Equal(t, http.StatusOK, recGet.Code)
		var resp struct {
			Data []handler.DefenceClientResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(recGet.Body).Decode(&resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, clientID.String(), resp.Data[0].ID)
	})

	t.Run("unknown route returns json 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})
}
