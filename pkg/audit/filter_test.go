package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cepalab/signguard/pkg/audit"
)

func TestMetadataFilter(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		f := audit.NewMetadataFilter()
		out := f.Filter(map[string]any{
			"method":              "totp",
			"code":                "123456",
			"Value":               "ABCDE-FGHIJ",
			"authorization_token": "abc.def",
			"pending_secret":      "GEZDGNBV",
			"email":               "ana@example.com",
			"phone":               "+5511999990000",
		})

		assert.Equal(t, "totp", out["method"])
		assert.NotContains(t, out, "code")
		assert.NotContains(t, out, "Value")
		assert.NotContains(t, out, "authorization_token")
		assert.NotContains(t, out, "pending_secret")
		assert.Len(t, out["email"], 64)
		assert.Equal(t, "+5**********00", out["phone"])
	})

	t.Run("custom and allowed fields", func(t *testing.T) {
		t.Parallel()
		f := audit.NewMetadataFilter(
			audit.WithCustomField("subject_id", audit.FilterActionHash),
			audit.WithAllowedField("code"),
		)
		out := f.Filter(map[string]any{"subject_id": "doc-1", "code": "keep"})
		assert.Equal(t, "keep", out["code"])
		assert.NotEqual(t, "doc-1", out["subject_id"])
	})

	t.Run("without defaults", func(t *testing.T) {
		t.Parallel()
		f := audit.NewMetadataFilter(audit.WithoutPIIDefaults())
		out := f.Filter(map[string]any{"code": "123456"})
		assert.Equal(t, "123456", out["code"])
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, audit.NewMetadataFilter().Filter(nil))
	})
}

func TestMetadataFilterWildcards(t *testing.T) {
	t.Parallel()

	f := audit.NewMetadataFilter(audit.WithCustomField("doc_*", audit.FilterActionMask))
	out := f.Filter(map[string]any{
		"backup_codes":      []string{"a"},
		"backup_code_count": 10,
		"doc_number":        "1234567890",
		"cpf":               "1234",
		"ip":                "203.0.113.7",
	})

	assert.NotContains(t, out, "backup_codes")
	assert.NotContains(t, out, "backup_code_count")
	assert.Equal(t, "12******90", out["doc_number"])
	assert.Equal(t, "****", out["cpf"])
	assert.Equal(t, "203.0.113.7", out["ip"])
}
