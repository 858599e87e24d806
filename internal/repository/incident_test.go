package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/marinesafe/safety-advisor/internal/common"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

func newMockRepo(t *testing.T) (IncidentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewIncidentRepository(db, nil), mock
}

func emptyRow(id string, createdAt time.Time) []driverValue {
	vals := make([]driverValue, 0, len(incidentColumns))
	for _, col := range incidentColumns {
		switch col {
		case "id":
			vals = append(vals, id)
		case "created_at":
			vals = append(vals, createdAt)
		case "ip_sign_on_datetime", "hours_until_return_to_work":
			vals = append(vals, nil)
		case "client_advised", "vessel_connected_to_well", "related_to_work",
			"human_factor_identified", "investigated_with_hit", "work_at_height",
			"work_in_confined_space", "lifting_operation_incident", "dropped_object",
			"environmental_loss_of_containment", "first_shift_on_board",
			"first_aid_provided", "injured_person_medivac",
			"injured_person_returned_to_work", "equipment_isolated_inhibited",
			"trac_jsa_completed", "photos_cctv_available":
			vals = append(vals, false)
		case "swell_period_s", "swell_height_m", "hours_after_sign_on":
			vals = append(vals, 0.0)
		default:
			vals = append(vals, "")
		}
	}
	return vals
}

type driverValue = driver.Value

func mockRows(rows ...[]driverValue) *sqlmock.Rows {
	r := sqlmock.NewRows(incidentColumns)
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func TestInsertAssignsIDAndTimestamps(t *testing.T) {
	repo, mock := newMockRepo(t)

	hours := 12.5
	signOn := "2024-03-18T06:00:00"
	rec := schema.Incident{
		VesselName:             "MV Orion",
		WorkAtHeight:           true,
		IPSignOnDatetime:       &signOn,
		HoursUntilReturnToWork: &hours,
	}

	mock.ExpectExec("INSERT INTO incidents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := repo.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uuid.Parse(stored.ID); err != nil {
		t.Errorf("stored id is not a uuid: %q", stored.ID)
	}
	if stored.CreatedAt.IsZero() || stored.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at not set in UTC: %v", stored.CreatedAt)
	}
	if stored.VesselName != "MV Orion" {
		t.Errorf("record not carried through: %+v", stored.Incident)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertDistinctIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO incidents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO incidents").WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := repo.Insert(context.Background(), schema.Incident{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := repo.Insert(context.Background(), schema.Incident{})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct ids, both %s", a.ID)
	}
}

func TestInsertStoreError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO incidents").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Insert(context.Background(), schema.Incident{})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .+ FROM incidents WHERE id = ").
		WithArgs("missing-id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing-id")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIDRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)

	createdAt := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	row := emptyRow("abc-123", createdAt)
	for i, col := range incidentColumns {
		switch col {
		case "vessel_name":
			row[i] = "MV Orion"
		case "hours_until_return_to_work":
			row[i] = "12.5"
		case "ip_sign_on_datetime":
			row[i] = "2024-03-18T06:00:00"
		}
	}

	mock.ExpectQuery("SELECT .+ FROM incidents WHERE id = ").
		WithArgs("abc-123").
		WillReturnRows(mockRows(row))

	rec, err := repo.GetByID(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.VesselName != "MV Orion" {
		t.Errorf("vessel_name = %q", rec.VesselName)
	}
	if rec.HoursUntilReturnToWork == nil || *rec.HoursUntilReturnToWork != 12.5 {
		t.Errorf("hours_until_return_to_work = %v", rec.HoursUntilReturnToWork)
	}
	if rec.IPSignOnDatetime == nil || *rec.IPSignOnDatetime != "2024-03-18T06:00:00" {
		t.Errorf("ip_sign_on_datetime = %v", rec.IPSignOnDatetime)
	}
	if !rec.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at = %v", rec.CreatedAt)
	}
}

func TestGetAllStoreOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	t0 := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM incidents ORDER BY created_at, id").
		WillReturnRows(mockRows(
			emptyRow("a", t0),
			emptyRow("b", t0.Add(time.Hour)),
		))

	recs, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "a" || recs[1].ID != "b" {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestGetSimilarReferenceHit(t *testing.T) {
	repo, mock := newMockRepo(t)

	t0 := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM incidents WHERE id IN ").
		WithArgs(similarReferenceIDs[0], similarReferenceIDs[1], similarReferenceIDs[2]).
		WillReturnRows(mockRows(emptyRow(similarReferenceIDs[0], t0)))

	recs, err := repo.GetSimilar(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != similarReferenceIDs[0] {
		t.Errorf("unexpected records: %+v", recs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetSimilarFallbackFirstThree(t *testing.T) {
	repo, mock := newMockRepo(t)

	t0 := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM incidents WHERE id IN ").
		WithArgs(similarReferenceIDs[0], similarReferenceIDs[1], similarReferenceIDs[2]).
		WillReturnRows(mockRows())
	mock.ExpectQuery("SELECT .+ FROM incidents ORDER BY created_at, id LIMIT 3").
		WillReturnRows(mockRows(
			emptyRow("a", t0),
			emptyRow("b", t0.Add(time.Minute)),
			emptyRow("c", t0.Add(2*time.Minute)),
		))

	recs, err := repo.GetSimilar(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 fallback records, got %d", len(recs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
