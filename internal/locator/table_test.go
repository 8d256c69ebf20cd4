package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajramos/wareply/internal/config"
)

func TestDefaultTableCoversAllRoles(t *testing.T) {
	table := DefaultTable()
	for _, role := range []string{
		RoleSessionReady, RoleUnreadBadge, RoleConversationRow, RoleChatPanel,
		RoleMessageIn, RoleMessageText, RoleComposeBox, RoleChatHeaderTitle,
	} {
		strategies := table.Strategies(role)
		assert.NotEmpty(t, strategies, "role %q must have at least one strategy", role)
		for i, s := range strategies {
			assert.Contains(t, []string{config.StrategyCSS, config.StrategyXPath}, s.Kind,
				"role %q strategy %d", role, i)
			assert.NotEmpty(t, s.Query, "role %q strategy %d", role, i)
		}
	}
}

func TestConversationRowStrategiesAreAllCSS(t *testing.T) {
	// The ancestor walk evaluates these with Element.matches, which only
	// understands CSS selectors.
	table := DefaultTable()
	queries := table.CSSQueries(RoleConversationRow)
	assert.Equal(t, len(table.Strategies(RoleConversationRow)), len(queries))
}

func TestApplyOverridesReplacesWholesale(t *testing.T) {
	table := DefaultTable()
	original := len(table.Strategies(RoleComposeBox))
	assert.Greater(t, original, 1)

	err := table.ApplyOverrides(&config.SelectorsConfig{
		Roles: map[string][]config.SelectorStrategy{
			RoleComposeBox: {{Kind: config.StrategyCSS, Query: "div.new-compose"}},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, []Strategy{{Kind: config.StrategyCSS, Query: "div.new-compose"}},
		table.Strategies(RoleComposeBox))
	// Untouched roles keep their defaults.
	assert.NotEmpty(t, table.Strategies(RoleUnreadBadge))
}

func TestApplyOverridesRejectsUnknownRole(t *testing.T) {
	table := DefaultTable()
	err := table.ApplyOverrides(&config.SelectorsConfig{
		Roles: map[string][]config.SelectorStrategy{
			"compose-bxo": {{Kind: config.StrategyCSS, Query: "div"}},
		},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "compose-bxo")
}

func TestApplyOverridesNilConfig(t *testing.T) {
	table := DefaultTable()
	assert.NoError(t, table.ApplyOverrides(nil))
}
