package config

import (
	"context"
	"strings"

	"github.com/nimblebooks/invoicing_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin enforces multi-tenant isolation by automatically scoping
// queries/updates/deletes to the request's enterprise_id when the model has an
// enterprise_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include enterprise_id manually.
// - Admin/internal bypass is explicit via context flags.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassTenantScope(ctx) {
		return
	}
	enterpriseID := enterpriseIdFromContext(ctx)
	if enterpriseID == "" {
		return
	}

	// Only apply if the current model/table includes an enterprise_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasEnterpriseID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "enterprise_id") {
			hasEnterpriseID = true
			break
		}
	}
	if !hasEnterpriseID {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasEnterpriseID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "enterprise_id"},
				Value:  enterpriseID,
			},
		},
	})
}

func enterpriseIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyEnterpriseId).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && v {
		return true
	}
	if v, ok := ctx.Value(appctx.ContextKeyIsAdmin).(bool); ok && v {
		return true
	}
	return false
}

func whereHasEnterpriseID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasEnterpriseID(e) {
			return true
		}
	}
	return false
}

func exprHasEnterpriseID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsEnterpriseID(v.Column)
	case clause.Neq:
		return colIsEnterpriseID(v.Column)
	case clause.IN:
		return colIsEnterpriseID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasEnterpriseID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasEnterpriseID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "enterprise_id")
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), "enterprise_id")
	default:
		return false
	}
}

func colIsEnterpriseID(col interface{}) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "enterprise_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "enterprise_id")
	default:
		return false
	}
}
