package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

// companyColumns is the column list used for SELECT statements on the companies table.
const companyColumns = `id, company_name, industry, country, country_code, city,
	founded_year, date_joined, valuation, total_raised, roi, website, description`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCompanies(ctx context.Context, db executor) ([]*model.Company, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY load_order`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var out []*model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryInvestments(ctx context.Context, db executor) ([]model.Investment, error) {
	rows, err := db.QueryContext(ctx, `SELECT investor_id, company_id FROM investments ORDER BY load_order`)
	if err != nil {
		return nil, fmt.Errorf("query investments: %w", err)
	}
	defer rows.Close()

	var out []model.Investment
	for rows.Next() {
		var inv model.Investment
		if err := rows.Scan(&inv.InvestorID, &inv.CompanyID); err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func queryRegions(ctx context.Context, db executor) ([]*model.Region, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, geometry FROM regions ORDER BY load_order`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []*model.Region
	for rows.Next() {
		r, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func importEntities(ctx context.Context, db executor, e *store.Entities) error {
	for _, table := range []string{"investments", "companies", "regions"} {
		if _, err := db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range e.Companies() {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO companies (
				id, company_name, industry, country, country_code, city,
				founded_year, date_joined, valuation, total_raised, roi, website, description
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			c.ID,
			c.Name,
			string(c.Industry),
			c.Country,
			nullString(c.CountryCode),
			c.City,
			nullIntPtr(c.FoundedYear),
			c.DateJoined,
			c.Valuation,
			nullFloatPtr(c.TotalRaised),
			nullFloatPtr(c.ROI),
			nullString(c.Website),
			nullString(c.Description),
		); err != nil {
			return fmt.Errorf("insert company %s: %w", c.ID, err)
		}
	}

	for _, inv := range e.Investments() {
		if _, ok := e.Company(inv.CompanyID); !ok {
			continue
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO investments (investor_id, company_id) VALUES ($1, $2)`,
			inv.InvestorID, inv.CompanyID,
		); err != nil {
			return fmt.Errorf("insert investment %s->%s: %w", inv.InvestorID, inv.CompanyID, err)
		}
	}

	for _, r := range e.Regions() {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO regions (id, name, geometry) VALUES ($1, $2, $3)`,
			r.ID, r.Name, jsonbBytes(r.Geometry),
		); err != nil {
			return fmt.Errorf("insert region %s: %w", r.ID, err)
		}
	}
	return nil
}
