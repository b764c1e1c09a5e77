package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var companyRowColumns = []string{
	"id", "company_name", "industry", "country", "country_code", "city",
	"founded_year", "date_joined", "valuation", "total_raised", "roi", "website", "description",
}

func TestLoadCompanies(t *testing.T) {
	db, mock := newMockDB(t)
	joined := time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM companies ORDER BY load_order").
		WillReturnRows(sqlmock.NewRows(companyRowColumns).
			AddRow("1", "Stripe", "Fintech", "United States", "USA", "San Francisco",
				2010, joined, 9.5e10, 2.2e9, 43.18, "https://stripe.com", "Payments.").
			AddRow("2", "Mystery", "Space", "Narnia", nil, "",
				nil, joined, 1e9, nil, nil, nil, nil))

	got, err := NewWithDB(db).LoadCompanies(context.Background())
	if err != nil {
		t.Fatalf("LoadCompanies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ROI == nil || *got[0].ROI != 43.18 || got[0].FoundedYear == nil || *got[0].FoundedYear != 2010 {
		t.Errorf("stripe nullable fields not populated: %+v", got[0])
	}
	if got[0].CountryCode != "USA" || got[0].Website != "https://stripe.com" {
		t.Errorf("stripe strings = %+v", got[0])
	}
	if got[1].Industry != model.IndustryOther {
		t.Errorf("industry = %q, want Other", got[1].Industry)
	}
	if got[1].ROI != nil || got[1].TotalRaised != nil || got[1].FoundedYear != nil {
		t.Errorf("NULL columns should map to nil: %+v", got[1])
	}
}

func TestLoadCompanies_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM companies").WillReturnError(errors.New("connection refused"))

	_, err := NewWithDB(db).LoadCompanies(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadInvestments(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT investor_id, company_id FROM investments").
		WillReturnRows(sqlmock.NewRows([]string{"investor_id", "company_id"}).
			AddRow("Sequoia Capital", "1").
			AddRow("Accel", "2"))

	got, err := NewWithDB(db).LoadInvestments(context.Background())
	if err != nil {
		t.Fatalf("LoadInvestments: %v", err)
	}
	want := []model.Investment{{InvestorID: "Sequoia Capital", CompanyID: "1"}, {InvestorID: "Accel", CompanyID: "2"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadRegions(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, name, geometry FROM regions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "geometry"}).
			AddRow("CAN", "Canada", []byte(`{"type":"Polygon"}`)).
			AddRow("ATA", "Antarctica", nil))

	got, err := NewWithDB(db).LoadRegions(context.Background())
	if err != nil {
		t.Fatalf("LoadRegions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if string(got[0].Geometry) != `{"type":"Polygon"}` {
		t.Errorf("geometry = %s", got[0].Geometry)
	}
	if got[1].Geometry != nil {
		t.Errorf("NULL geometry = %s, want nil", got[1].Geometry)
	}
}

func TestImport(t *testing.T) {
	db, mock := newMockDB(t)
	roi := 2.0
	e := store.New(
		[]*model.Company{{ID: "1", Name: "A", Industry: model.IndustryHealth, DateJoined: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), ROI: &roi}},
		[]model.Investment{{InvestorID: "X", CompanyID: "1"}, {InvestorID: "Y", CompanyID: "missing"}},
		[]*model.Region{{ID: "CAN", Name: "Canada"}},
	)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM investments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM companies").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM regions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO companies").
		WithArgs("1", "A", "Health", "", sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg(), 0.0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO investments").WithArgs("X", "1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO regions").WithArgs("CAN", "Canada", nil).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := NewWithDB(db).Import(context.Background(), e); err != nil {
		t.Fatalf("Import: %v", err)
	}
}

func TestImport_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	e := store.New(nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM investments").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := NewWithDB(db).Import(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("").Valid || !nullString("x").Valid {
		t.Error("nullString validity wrong")
	}
	y := 2001
	if nullIntPtr(nil).Valid || nullIntPtr(&y).Int64 != 2001 {
		t.Error("nullIntPtr wrong")
	}
	if jsonbBytes(nil) != nil || jsonbBytes([]byte("null")) != nil {
		t.Error("jsonbBytes should map empty and null to nil")
	}
}
