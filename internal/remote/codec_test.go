package remote

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Contact(t *testing.T) {
	row := Row{
		"id":         "c1",
		"tenant_id":  "t1",
		"created_at": "2024-05-01T10:00:00Z",
		"updated_at": "2024-05-02T10:00:00Z",
		"name":       "Ada",
		"email":      "ada@example.com",
		"tags":       []any{"vip", "beta"},
		"company":    nil,
	}

	c, err := Decode[models.Contact](row)
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "t1", c.TenantID)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), c.CreatedAt)
	assert.Equal(t, []string{"vip", "beta"}, c.Tags)
	assert.Nil(t, c.Company)
}

func TestDecode_TypeMismatch(t *testing.T) {
	_, err := Decode[models.Contact](Row{"name": 42})
	require.Error(t, err)
}

func TestDecodeAll_ReportsRowIndex(t *testing.T) {
	_, err := DecodeAll[models.Contact]([]Row{{"name": "ok"}, {"name": []any{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestEncode_PatchKeepsOnlySetFields(t *testing.T) {
	name := "Grace"
	row, err := Encode(models.ContactPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "Grace"}, row)
}

func TestStripMetadata(t *testing.T) {
	in := Row{"id": "x", "tenant_id": "t", "created_at": "a", "updated_at": "b", "name": "n"}
	out := StripMetadata(in)

	assert.Equal(t, Row{"name": "n"}, out)
	assert.Len(t, in, 5, "input must not be modified")
}

func TestClone_IsDeep(t *testing.T) {
	in := Row{"tags": []any{"a"}, "nested": map[string]any{"k": "v"}}
	out := Clone(in)

	out["tags"].([]any)[0] = "changed"
	out["nested"].(map[string]any)["k"] = "changed"

	assert.Equal(t, "a", in["tags"].([]any)[0])
	assert.Equal(t, "v", in["nested"].(map[string]any)["k"])
	assert.Nil(t, Clone(nil))
}

func TestQueryBuilders(t *testing.T) {
	base := Eq("tenant_id", "t1")
	q := base.And("stage", "won").OrderBy("created_at", true)

	assert.Len(t, base.Filters, 1, "And must not alias the receiver")
	assert.Equal(t, []Filter{{"tenant_id", "t1"}, {"stage", "won"}}, q.Filters)
	assert.Equal(t, &Order{Column: "created_at", Desc: true}, q.Order)
}
