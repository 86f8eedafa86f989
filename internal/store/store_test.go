package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-app-builder/internal/workflow"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(&Config{SQLitePath: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func project(id, name string, created time.Time) workflow.Project {
	return workflow.NewProject(id, workflow.Plan{Name: name, Description: name + " app"}, created).Clone()
}

func TestIsPostgresURL(t *testing.T) {
	assert.True(t, IsPostgresURL("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgresURL(" PostgreSQL://localhost/db"))
	assert.False(t, IsPostgresURL("app.db"))
	assert.False(t, IsPostgresURL(""))
}

func TestOpen_SQLite(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, "sqlite", db.Driver())
	assert.NoError(t, db.Health(context.Background()))
	assert.Equal(t, "sqlite", db.GetStats()["driver"])
}

func TestProjects_SaveAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := db.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	p := project("p1", "Todo", base)
	require.NoError(t, db.SaveProject(ctx, p, "build a todo app"))

	p.Status = workflow.ProjectPreview
	p.Codebase = &workflow.Codebase{Frontend: "export default App"}
	require.NoError(t, db.SaveProject(ctx, p, ""))

	got, err := db.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, workflow.ProjectPreview, got.Status)
	assert.Equal(t, "export default App", got.Codebase.Frontend)
	assert.Len(t, got.Agents, 6)

	prompt, err := db.GetProjectPrompt(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "build a todo app", prompt, "an empty prompt does not overwrite the stored one")
}

func TestProjects_ListAndCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	older := project("old", "Old", base)
	newer := project("new", "New", base.Add(time.Hour))
	newer.Status = workflow.ProjectPreview
	require.NoError(t, db.SaveProject(ctx, older, "a"))
	require.NoError(t, db.SaveProject(ctx, newer, "b"))

	list, err := db.ListProjects(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	list, err = db.ListProjects(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	counts, err := db.CountProjectsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"generating": 1, "preview": 1}, counts)
}

func TestProjects_Delete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveProject(ctx, project("p1", "X", time.Now().UTC()), "x"))

	require.NoError(t, db.DeleteProject(ctx, "p1"))
	assert.ErrorIs(t, db.DeleteProject(ctx, "p1"), ErrNotFound)
}

func TestProjects_FailInterrupted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := project("p1", "X", time.Now().UTC())
	require.NoError(t, p.Agents[0].SetStatus(workflow.AgentWorking))
	require.NoError(t, db.SaveProject(ctx, p, "x"))

	done := project("p2", "Y", time.Now().UTC())
	done.Status = workflow.ProjectPreview
	require.NoError(t, db.SaveProject(ctx, done, "y"))

	n, err := db.FailInterruptedProjects(ctx, "server restarted")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := db.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, workflow.ProjectError, got.Status)
	assert.Equal(t, "server restarted", got.Error)
	assert.Equal(t, workflow.AgentError, got.Agents[0].Status)

	got, err = db.GetProject(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, workflow.ProjectPreview, got.Status)
}

func TestAPIKeys_CRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetAPIKey(ctx, "github")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SaveAPIKey(ctx, &APIKeyRecord{Service: "github", Ciphertext: "c1", Salt: "s1", Masked: "ghp_****abcd", Status: "disconnected"}))
	require.NoError(t, db.SaveAPIKey(ctx, &APIKeyRecord{Service: "github", Ciphertext: "c2", Salt: "s2", Masked: "ghp_****wxyz", Status: "disconnected"}))
	require.NoError(t, db.SaveAPIKey(ctx, &APIKeyRecord{Service: "cerebras", Ciphertext: "c3", Salt: "s3", Status: "disconnected"}))

	rec, err := db.GetAPIKey(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, "c2", rec.Ciphertext)
	assert.Equal(t, "ghp_****wxyz", rec.Masked)

	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpdateAPIKeyStatus(ctx, "github", "connected", "ok", at))
	rec, err = db.GetAPIKey(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, "connected", rec.Status)
	require.NotNil(t, rec.VerifiedAt)
	assert.True(t, rec.VerifiedAt.Equal(at))
	assert.ErrorIs(t, db.UpdateAPIKeyStatus(ctx, "vercel", "connected", "", at), ErrNotFound)

	recs, err := db.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "cerebras", recs[0].Service)

	require.NoError(t, db.DeleteAPIKey(ctx, "github"))
	assert.ErrorIs(t, db.DeleteAPIKey(ctx, "github"), ErrNotFound)
}
