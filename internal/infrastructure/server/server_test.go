package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage/internal/application/handlers"
	"github.com/ersonp/lineage/internal/domain/mocks"
	"github.com/ersonp/lineage/internal/domain/services"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/ersonp/lineage/internal/infrastructure/metrics"
	"github.com/ersonp/lineage/internal/infrastructure/server"
)

type testEnv struct {
	db  *mocks.RelationalDB
	srv *server.Server
	ids struct {
		f1, f2, hidden, shared int64
	}
}

// newTestEnv builds two families joined by one shared person plus an
// inactive family with no members.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := mocks.NewRelationalDB()
	father := db.AddRole("father", 1)
	child := db.AddRole("child", 3)

	f1 := db.AddFamily(true, "Garcia", "Lopez")
	f2 := db.AddFamily(true, "Ruiz")
	hidden := db.AddFamily(false, "Zamora")

	ana := db.AddPerson("Ana", "Garcia")
	luis := db.AddPerson("Luis", "Garcia")
	db.AddMember(f1, ana, father, true)
	db.AddMember(f1, luis, child, false)
	db.AddMember(f2, luis, father, true)

	collector := metrics.NewCollector()
	projector := services.NewProjector(db)
	tree := services.NewTreeService(db, projector, services.TreeLimits{MaxFamilies: 50, Timeout: 5 * time.Second}, collector)
	rels := services.NewRelationshipService(db, collector)
	marriages := services.NewMarriageService(db, collector)

	srv, err := server.New(config.ServerConfig{ListenAddr: "127.0.0.1:0"}, server.Services{
		Families: handlers.NewFamilyHandler(projector, tree),
		People:   handlers.NewPersonHandler(projector, rels, marriages),
		Metrics:  collector.Handler(),
	})
	require.NoError(t, err)

	env := &testEnv{db: db, srv: srv}
	env.ids.f1, env.ids.f2, env.ids.hidden, env.ids.shared = f1.ID, f2.ID, hidden.ID, luis.ID
	return env
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestServer_New_Invalid(t *testing.T) {
	_, err := server.New(config.ServerConfig{}, server.Services{})
	require.Error(t, err)
	assert.True(t, lerrors.HasCode(err, lerrors.CodeServerStartFailure))

	_, err = server.New(config.ServerConfig{ListenAddr: "127.0.0.1:0"}, server.Services{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handlers are required")
}

func TestServer_HealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_OpenAPISpec(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/openapi.json")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/families/{id}/tree")
	assert.Contains(t, body, "/people/{id}")
}

func TestServer_RequestID(t *testing.T) {
	env := newTestEnv(t)

	t.Run("assigned when absent", func(t *testing.T) {
		w := env.get(t, "/health")
		assert.Len(t, w.Header().Get(server.HeaderRequestID), 36)
	})

	t.Run("client id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(server.HeaderRequestID, "abc-123")
		w := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(server.HeaderRequestID))
	})
}

func TestServer_ListFamilies(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
		wantFirst string
	}{
		{name: "active only", query: "", wantCode: http.StatusOK, wantCount: 2, wantFirst: "Garcia Lopez"},
		{name: "include inactive", query: "?include_inactive=YES", wantCode: http.StatusOK, wantCount: 3, wantFirst: "Garcia Lopez"},
		{name: "explicit false", query: "?include_inactive=0", wantCode: http.StatusOK, wantCount: 2, wantFirst: "Garcia Lopez"},
		{name: "bad flag", query: "?include_inactive=maybe", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, "/families"+tt.query)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			// The body is a bare array of family projections.
			assert.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "["), w.Body.String())
			var got []services.FamilyProjection
			decode(t, w, &got)
			require.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantFirst, got[0].FullLastName)
		})
	}
}

func TestServer_GetFamily(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/families/"+itoa(env.ids.f1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got services.FamilyProjection
	decode(t, w, &got)
	assert.Equal(t, 2, got.MemberCount)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/families/"+itoa(env.ids.hidden)).Code)
	assert.Equal(t, http.StatusOK, env.get(t, "/families/"+itoa(env.ids.hidden)+"?include_inactive=true").Code)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/families/9999").Code)
}

func TestServer_FamilyTree(t *testing.T) {
	env := newTestEnv(t)

	t.Run("connected families", func(t *testing.T) {
		w := env.get(t, "/families/"+itoa(env.ids.f1)+"/tree")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got services.TreeResult
		decode(t, w, &got)
		assert.Equal(t, env.ids.f1, got.RootFamilyID)
		assert.Equal(t, 2, got.FamilyCount)
		assert.False(t, got.Truncated)
		require.Len(t, got.Connections, 2)
		conn := got.Connections[0]
		assert.Equal(t, env.ids.shared, conn.PersonID)
		assert.Equal(t, "Luis Garcia", conn.PersonFullName)
		assert.Equal(t, env.ids.f1, conn.FromFamilyID)
		assert.Equal(t, env.ids.f2, conn.ToFamilyID)
		assert.Equal(t, "father", conn.RoleInToFamily)
		assert.True(t, conn.IsPrimaryInToFamily)

		back := got.Connections[1]
		assert.Equal(t, env.ids.f2, back.FromFamilyID)
		assert.Equal(t, env.ids.f1, back.ToFamilyID)
		assert.Equal(t, "child", back.RoleInToFamily)
	})

	t.Run("request lowers ceiling", func(t *testing.T) {
		w := env.get(t, "/families/"+itoa(env.ids.f1)+"/tree?max_families=1")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got services.TreeResult
		decode(t, w, &got)
		assert.Equal(t, 1, got.FamilyCount)
		assert.True(t, got.Truncated)
		assert.Equal(t, services.TruncatedMaxFamilies, got.TruncatedReason)
	})

	t.Run("hidden root", func(t *testing.T) {
		w := env.get(t, "/families/"+itoa(env.ids.hidden)+"/tree")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad flag", func(t *testing.T) {
		w := env.get(t, "/families/"+itoa(env.ids.f1)+"/tree?include_inactive=2")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_GetPerson(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/people/"+itoa(env.ids.shared))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		ID          int64  `json:"id"`
		FullName    string `json:"full_name"`
		Memberships []struct {
			FamilyID int64 `json:"family_id"`
		} `json:"memberships"`
	}
	decode(t, w, &got)
	assert.Equal(t, env.ids.shared, got.ID)
	assert.Equal(t, "Luis Garcia", got.FullName)
	assert.Len(t, got.Memberships, 2)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/people/9999").Code)
}

func TestServer_StoreFailureIsOpaque(t *testing.T) {
	env := newTestEnv(t)
	env.db.FailOn["ListFamilies"] = errors.New("disk on fire")

	w := env.get(t, "/families")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.get(t, "/families/"+itoa(env.ids.f1)+"/tree").Code)

	w := env.get(t, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lineage_tree_traversals_total{outcome="complete"} 1`)
}

func TestServer_Start(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
