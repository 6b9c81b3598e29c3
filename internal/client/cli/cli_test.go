package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/auth"
	"github.com/dmitrijs2005/omnidesk/internal/client/config"
	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/models"
	"github.com/dmitrijs2005/omnidesk/internal/server/api"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "cli-secret"

type harness struct {
	t    *testing.T
	base []string
}

// newHarness isolates the CLI from the environment and points it at an
// embedded store in a temp dir, signed in as user.
func newHarness(t *testing.T, user string) *harness {
	t.Helper()
	t.Setenv(config.ConfigEnv, "")
	t.Setenv(config.TokenEnv, "")

	base := []string{"--data-dir", t.TempDir(), "--log-level", "error"}
	if user != "" {
		tok, err := auth.GenerateToken(user, user+"@example.com", []byte(secret), time.Hour)
		require.NoError(t, err)
		base = append(base, "--token", tok)
	}
	return &harness{t: t, base: base}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), append(append([]string{}, h.base...), args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func decodeOut[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestToken(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")
	var out bytes.Buffer
	err := Execute(context.Background(), []string{"token", "--subject", "u1", "--email", "u1@example.com", "--secret", secret},
		strings.NewReader(""), &out, &bytes.Buffer{})
	require.NoError(t, err)

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), []byte(secret))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1@example.com", claims.Email)
}

func TestToken_RequiresSubject(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")
	err := Execute(context.Background(), []string{"token"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWhoami(t *testing.T) {
	h := newHarness(t, "u1")
	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","email":"u1@example.com"}`, out)

	_, err = newHarness(t, "").run("", "whoami")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestContacts_Lifecycle(t *testing.T) {
	h := newHarness(t, "u1")

	out, err := h.run("", "contacts", "create", "--data", `{"name":"Acme","email":"hi@acme.com","tags":["vip"]}`)
	require.NoError(t, err)
	created := decodeOut[models.Contact](t, out)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.TenantID)

	out, err = h.run("", "contacts", "list")
	require.NoError(t, err)
	list := decodeOut[[]models.Contact](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	out, err = h.run(`{"name":"Acme Inc"}`, "contacts", "update", created.ID, "--data", "-")
	require.NoError(t, err)
	updated := decodeOut[models.Contact](t, out)
	assert.Equal(t, "Acme Inc", updated.Name)
	assert.Equal(t, []string{"vip"}, updated.Tags)

	out, err = h.run("", "contacts", "get", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", decodeOut[models.Contact](t, out).Name)

	out, err = h.run("", "contacts", "delete", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+created.ID+"\n", out)

	_, err = h.run("", "contacts", "get", created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContacts_TenantsAreSeparate(t *testing.T) {
	h := newHarness(t, "u1")
	_, err := h.run("", "contacts", "create", "--data", `{"name":"Acme"}`)
	require.NoError(t, err)

	other := newHarness(t, "u2")
	other.base[1] = h.base[1]
	out, err := other.run("", "contacts", "list")
	require.NoError(t, err)
	assert.Empty(t, decodeOut[[]models.Contact](t, out))
}

func TestCreate_RejectsBadInput(t *testing.T) {
	h := newHarness(t, "u1")

	_, err := h.run("", "deals", "create", "--data", `{"title":`)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.run("", "deals", "create", "--data", `{"title":"x","owner":"me"}`)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.run("", "deals", "create", "--data", `{"title":"Renewal","stage":"maybe","currency":"EUR"}`)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestList_Unauthenticated(t *testing.T) {
	_, err := newHarness(t, "").run("", "templates", "list")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestWatch_PrintsSettledResult(t *testing.T) {
	h := newHarness(t, "u1")
	_, err := h.run("", "templates", "create", "--data", `{"name":"Welcome","channel":"email","body":"Hi {{name}}"}`)
	require.NoError(t, err)

	out, err := h.run("", "templates", "watch", "--count", "1")
	require.NoError(t, err)
	list := decodeOut[[]models.Template](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, "Welcome", list[0].Name)
}

func TestContacts_UpdateClearsField(t *testing.T) {
	h := newHarness(t, "u1")
	out, err := h.run("", "contacts", "create", "--data", `{"name":"Acme","phone":"+100","company":"Acme Ltd"}`)
	require.NoError(t, err)
	created := decodeOut[models.Contact](t, out)
	require.NotNil(t, created.Phone)

	out, err = h.run("", "contacts", "update", created.ID, "--data", `{"clear":["phone"]}`)
	require.NoError(t, err)
	updated := decodeOut[models.Contact](t, out)
	assert.Nil(t, updated.Phone)
	require.NotNil(t, updated.Company)

	_, err = h.run("", "contacts", "update", created.ID, "--data", `{"clear":["name"]}`)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t, "u1")
	path := filepath.Join(t.TempDir(), "cache.prom")

	_, err := h.run("", "contacts", "list", "--metrics-file", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, "omnidesk_querycache_misses_total 1")
	assert.Contains(t, text, "omnidesk_querycache_hits_total 0")
	assert.Contains(t, text, `omnidesk_querycache_fetches_total{result="ok"} 1`)
}

func TestRemoteServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := memory.New()
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewRouter(&api.Handler{Store: s}, []byte(secret), nil, nil))
	defer srv.Close()

	h := newHarness(t, "u1")
	h.base = append(h.base, "--server", srv.URL, "--timeout", "5s")

	out, err := h.run("", "deals", "create", "--data", `{"title":"Renewal","stage":"lead","value_cents":1500,"currency":"EUR"}`)
	require.NoError(t, err)
	created := decodeOut[models.Deal](t, out)
	assert.Equal(t, models.StageLead, created.Stage)

	out, err = h.run("", "deals", "list")
	require.NoError(t, err)
	require.Len(t, decodeOut[[]models.Deal](t, out), 1)

	_, err = h.run("", "deals", "update", "missing-id", "--data", `{"title":"X"}`)
	assert.ErrorIs(t, err, common.ErrNotFound)

	bad := newHarness(t, "")
	bad.base = append(bad.base, "--server", srv.URL, "--token", "garbage")
	_, err = bad.run("", "deals", "list")
	assert.Error(t, err)
}
