package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/guard"
	"github.com/pharmachat/pharmachat/engine/store"
)

func TestCheck(t *testing.T) {
	t.Run("Should flag pregnancy questions", func(t *testing.T) {
		risky, reason := guard.Check("I am pregnant, can I take panadol")
		assert.True(t, risky)
		assert.Equal(t, "pregnancy", reason)
	})
	t.Run("Should flag dosage questions", func(t *testing.T) {
		risky, reason := guard.Check("what dosage of ibuprofen should I take")
		assert.True(t, risky)
		assert.Equal(t, "dosage", reason)
	})
	t.Run("Should flag severe symptoms", func(t *testing.T) {
		risky, _ := guard.Check("I have chest pain since this morning")
		assert.True(t, risky)
	})
	t.Run("Should flag arabic risk wording", func(t *testing.T) {
		risky, reason := guard.Check("أنا حامل هل يمكنني أخذ بنادول")
		assert.True(t, risky)
		assert.Equal(t, "risk_ar", reason)
	})
	t.Run("Should pass plain availability questions", func(t *testing.T) {
		risky, _ := guard.Check("do you have panadol in stock")
		assert.False(t, risky)
	})
	t.Run("Should pass empty messages", func(t *testing.T) {
		risky, _ := guard.Check("   ")
		assert.False(t, risky)
	})
}

func TestSafetyResponse(t *testing.T) {
	t.Run("Should include tenant contact when available", func(t *testing.T) {
		tenant := &store.Tenant{Phone: "0555123456"}
		msg := guard.SafetyResponse(tenant, core.LanguageEnglish)
		assert.Contains(t, msg, "0555123456")
	})
	t.Run("Should still respond without a tenant", func(t *testing.T) {
		msg := guard.SafetyResponse(nil, core.LanguageFrench)
		assert.Contains(t, msg, "pharmacien")
	})
}
