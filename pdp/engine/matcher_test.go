// pdp/engine/matcher_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

func TestParseMatcher(t *testing.T) {
	t.Run("Wildcard", func(t *testing.T) {
		m := ParseMatcher("*")
		assert.True(t, m.Matches("anything"))
		assert.True(t, m.Matches(""))
	})

	t.Run("Exact", func(t *testing.T) {
		m := ParseMatcher("document:report.pdf")
		assert.True(t, m.Matches("document:report.pdf"))
		assert.False(t, m.Matches("document:report"))
	})

	t.Run("Prefix_SegmentAligned", func(t *testing.T) {
		m := ParseMatcher("document:sensitive:*")
		assert.True(t, m.Matches("document:sensitive:report.pdf"))
		assert.True(t, m.Matches("document:sensitive"))
		assert.False(t, m.Matches("document:sensitives"))
		assert.False(t, m.Matches("document:public:report.pdf"))
	})

	t.Run("Attribute_NeverMatchesPlainValue", func(t *testing.T) {
		m := ParseMatcher("attr:department=finance")
		assert.False(t, m.Matches("finance"))
	})
}

func TestMatchSubject(t *testing.T) {
	subject := pdp_model.Subject{
		ID:            "user-1",
		ApplicationID: "app-1",
		Attributes:    map[string]interface{}{"department": "finance"},
	}
	roles := map[string]bool{"auditor": true}

	t.Run("Wildcard", func(t *testing.T) {
		match := matchSubject("*", subject, roles)
		assert.True(t, match.matched)
		assert.Empty(t, match.role)
	})

	t.Run("Role_Held", func(t *testing.T) {
		match := matchSubject("role:auditor", subject, roles)
		assert.True(t, match.matched)
		assert.Equal(t, "auditor", match.role)
	})

	t.Run("Role_NotHeld", func(t *testing.T) {
		match := matchSubject("role:admin", subject, roles)
		assert.False(t, match.matched)
	})

	t.Run("User", func(t *testing.T) {
		assert.True(t, matchSubject("user:user-1", subject, roles).matched)
		assert.False(t, matchSubject("user:user-2", subject, roles).matched)
	})

	t.Run("Application", func(t *testing.T) {
		assert.True(t, matchSubject("application:app-1", subject, roles).matched)
		assert.False(t, matchSubject("application:app-2", subject, roles).matched)
	})

	t.Run("Attribute", func(t *testing.T) {
		assert.True(t, matchSubject("attr:department=finance", subject, roles).matched)
		assert.False(t, matchSubject("attr:department=sales", subject, roles).matched)
		assert.False(t, matchSubject("attr:clearance=high", subject, roles).matched)
	})
}
