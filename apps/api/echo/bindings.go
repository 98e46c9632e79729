package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/inclusiva/core"
)

const orderingParam = "ordering"

// memberSortFields are the member columns list endpoints may be ordered by.
var memberSortFields = []string{"name", "email", "role", "is_active", "created_at", "updated_at"}

// bindOrdering reads "?ordering=-created_at,name". Fields outside sortable are
// dropped and a repeated field keeps its first direction.
func bindOrdering(ctx echo.Context, sortable ...string) []core.DBOrdering {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}

	allowed := make(map[string]bool, len(sortable))
	for _, f := range sortable {
		allowed[f] = true
	}

	var orderings []core.DBOrdering
	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		ascending := !strings.HasPrefix(field, "-")
		field = strings.TrimLeft(field, "+-")
		if !allowed[field] || seen[field] {
			continue
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: ascending})
	}
	return orderings
}
