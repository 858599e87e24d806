package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marinesafe/safety-advisor/internal/common"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

// StoredIncident is a persisted incident: the extracted record plus the
// identifier assigned at persistence time. Records are never mutated after
// insert.
type StoredIncident struct {
	ID string `json:"id"`
	schema.Incident
	CreatedAt time.Time `json:"created_at"`
}

// StoreError wraps any persistence-layer failure. The gateway does not
// retry; persistence failures are not assumed transient here.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// IncidentRepository is the gateway to the persisted incident collection.
type IncidentRepository interface {
	Insert(ctx context.Context, rec schema.Incident) (*StoredIncident, error)
	GetAll(ctx context.Context) ([]*StoredIncident, error)
	GetByID(ctx context.Context, id string) (*StoredIncident, error)
	GetSimilar(ctx context.Context) ([]*StoredIncident, error)
}

// similarReferenceIDs is a fixed reference set standing in for a similarity
// algorithm that does not exist yet. When none of these ids are present the
// gateway falls back to the first three records in store order.
// TODO: replace with a real similarity search once incident embeddings land.
var similarReferenceIDs = []string{
	"1db9a3e4-6c87-4e5f-9b21-67a2c3f2a111",
	"4c3f91d2-2b5e-4a8c-8f37-9d41e0b5b222",
	"7ea2c5b8-5f19-4d36-a6c4-21f8d7c9c333",
}

type incidentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewIncidentRepository(db *sql.DB, logger *slog.Logger) IncidentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &incidentRepository{db: db, logger: logger}
}

// incidentColumns is the canonical column order shared by insert and scan.
var incidentColumns = []string{
	"id",
	"date",
	"time_of_day",
	"vessel_name",
	"vessel_location",
	"client",
	"client_advised",
	"project_no_well_name",
	"vessel_connected_to_well",
	"related_to_work",
	"classification",
	"type_of_event",
	"human_factor_identified",
	"investigated_with_hit",
	"level_of_investigation",
	"sea_state",
	"swell_direction",
	"swell_period_s",
	"swell_height_m",
	"incident_location_on_vessel",
	"incident_description",
	"job_role",
	"work_at_height",
	"work_in_confined_space",
	"lifting_operation_incident",
	"dropped_object",
	"environmental_loss_of_containment",
	"ip_sign_on_datetime",
	"first_shift_on_board",
	"hours_after_sign_on",
	"injury_status",
	"injured_person_transported",
	"first_aid_provided",
	"injured_person_medivac",
	"injured_person_returned_to_work",
	"hours_until_return_to_work",
	"tools_used",
	"equipment_involved_affected",
	"equipment_isolated_inhibited",
	"equipment_damaged",
	"ptw_type",
	"ptw_number",
	"trac_jsa_completed",
	"task_being_performed",
	"ppe_worn",
	"photos_cctv_available",
	"corrective_preventive_actions_assigned",
	"created_at",
}

func columnList() string {
	return strings.Join(incidentColumns, ", ")
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ps, ", ")
}

// Insert assigns a new unique identifier, serializes temporal fields to
// canonical string form, and persists the record.
func (r *incidentRepository) Insert(ctx context.Context, rec schema.Incident) (*StoredIncident, error) {
	id := uuid.New().String()
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	// hours_until_return_to_work lives as text in the hosted table.
	var hours sql.NullString
	if rec.HoursUntilReturnToWork != nil {
		hours = sql.NullString{String: strconv.FormatFloat(*rec.HoursUntilReturnToWork, 'f', -1, 64), Valid: true}
	}
	var signOn sql.NullString
	if rec.IPSignOnDatetime != nil {
		signOn = sql.NullString{String: *rec.IPSignOnDatetime, Valid: true}
	}

	query := fmt.Sprintf("INSERT INTO incidents (%s) VALUES (%s)", columnList(), placeholders(len(incidentColumns)))
	args := []any{
		id,
		rec.Date,
		rec.TimeOfDay,
		rec.VesselName,
		rec.VesselLocation,
		rec.Client,
		rec.ClientAdvised,
		rec.ProjectNoWellName,
		rec.VesselConnectedToWell,
		rec.RelatedToWork,
		rec.Classification,
		rec.TypeOfEvent,
		rec.HumanFactorIdentified,
		rec.InvestigatedWithHIT,
		rec.LevelOfInvestigation,
		rec.SeaState,
		rec.SwellDirection,
		rec.SwellPeriodS,
		rec.SwellHeightM,
		rec.IncidentLocationOnVessel,
		rec.IncidentDescription,
		rec.JobRole,
		rec.WorkAtHeight,
		rec.WorkInConfinedSpace,
		rec.LiftingOperationIncident,
		rec.DroppedObject,
		rec.EnvironmentalLossOfContainment,
		signOn,
		rec.FirstShiftOnBoard,
		rec.HoursAfterSignOn,
		rec.InjuryStatus,
		rec.InjuredPersonTransported,
		rec.FirstAidProvided,
		rec.InjuredPersonMedivac,
		rec.InjuredPersonReturnedToWork,
		hours,
		rec.ToolsUsed,
		rec.EquipmentInvolvedAffected,
		rec.EquipmentIsolatedInhibited,
		rec.EquipmentDamaged,
		rec.PTWType,
		rec.PTWNumber,
		rec.TracJSACompleted,
		rec.TaskBeingPerformed,
		rec.PPEWorn,
		rec.PhotosCCTVAvailable,
		rec.CorrectivePreventiveActionsAssigned,
		createdAt,
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert incident", "incident_id", id, "error", err)
		return nil, &StoreError{Op: "insert incident", Cause: err}
	}

	r.logger.Info("incident inserted", "incident_id", id)
	return &StoredIncident{ID: id, Incident: rec, CreatedAt: createdAt}, nil
}

// GetAll returns every persisted incident in store order.
func (r *incidentRepository) GetAll(ctx context.Context) ([]*StoredIncident, error) {
	query := fmt.Sprintf("SELECT %s FROM incidents ORDER BY created_at, id", columnList())
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list incidents", "error", err)
		return nil, &StoreError{Op: "list incidents", Cause: err}
	}
	defer rows.Close()

	return r.collect(rows, "list incidents")
}

// GetByID returns one incident or ErrNotFound.
func (r *incidentRepository) GetByID(ctx context.Context, id string) (*StoredIncident, error) {
	query := fmt.Sprintf("SELECT %s FROM incidents WHERE id = $1", columnList())
	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get incident", "incident_id", id, "error", err)
		return nil, &StoreError{Op: "get incident", Cause: err}
	}
	return rec, nil
}

// GetSimilar returns the incidents matching the fixed reference set, or the
// first three persisted records when none of the reference ids exist.
func (r *incidentRepository) GetSimilar(ctx context.Context) ([]*StoredIncident, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM incidents WHERE id IN ($1, $2, $3) ORDER BY created_at, id",
		columnList())
	rows, err := r.db.QueryContext(ctx, query,
		similarReferenceIDs[0], similarReferenceIDs[1], similarReferenceIDs[2])
	if err != nil {
		r.logger.Error("failed to query similar incidents", "error", err)
		return nil, &StoreError{Op: "similar incidents", Cause: err}
	}
	defer rows.Close()

	recs, err := r.collect(rows, "similar incidents")
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return recs, nil
	}

	// Fallback: first 3 records in store order.
	query = fmt.Sprintf("SELECT %s FROM incidents ORDER BY created_at, id LIMIT 3", columnList())
	rows, err = r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query similar fallback", "error", err)
		return nil, &StoreError{Op: "similar incidents fallback", Cause: err}
	}
	defer rows.Close()

	return r.collect(rows, "similar incidents fallback")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *incidentRepository) collect(rows *sql.Rows, op string) ([]*StoredIncident, error) {
	var out []*StoredIncident
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, &StoreError{Op: op, Cause: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: op, Cause: err}
	}
	return out, nil
}

func (r *incidentRepository) scan(row rowScanner) (*StoredIncident, error) {
	var (
		rec    StoredIncident
		signOn sql.NullString
		hours  sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.Date,
		&rec.TimeOfDay,
		&rec.VesselName,
		&rec.VesselLocation,
		&rec.Client,
		&rec.ClientAdvised,
		&rec.ProjectNoWellName,
		&rec.VesselConnectedToWell,
		&rec.RelatedToWork,
		&rec.Classification,
		&rec.TypeOfEvent,
		&rec.HumanFactorIdentified,
		&rec.InvestigatedWithHIT,
		&rec.LevelOfInvestigation,
		&rec.SeaState,
		&rec.SwellDirection,
		&rec.SwellPeriodS,
		&rec.SwellHeightM,
		&rec.IncidentLocationOnVessel,
		&rec.IncidentDescription,
		&rec.JobRole,
		&rec.WorkAtHeight,
		&rec.WorkInConfinedSpace,
		&rec.LiftingOperationIncident,
		&rec.DroppedObject,
		&rec.EnvironmentalLossOfContainment,
		&signOn,
		&rec.FirstShiftOnBoard,
		&rec.HoursAfterSignOn,
		&rec.InjuryStatus,
		&rec.InjuredPersonTransported,
		&rec.FirstAidProvided,
		&rec.InjuredPersonMedivac,
		&rec.InjuredPersonReturnedToWork,
		&hours,
		&rec.ToolsUsed,
		&rec.EquipmentInvolvedAffected,
		&rec.EquipmentIsolatedInhibited,
		&rec.EquipmentDamaged,
		&rec.PTWType,
		&rec.PTWNumber,
		&rec.TracJSACompleted,
		&rec.TaskBeingPerformed,
		&rec.PPEWorn,
		&rec.PhotosCCTVAvailable,
		&rec.CorrectivePreventiveActionsAssigned,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if signOn.Valid {
		rec.IPSignOnDatetime = &signOn.String
	}
	if hours.Valid {
		if v, err := strconv.ParseFloat(hours.String, 64); err == nil {
			rec.HoursUntilReturnToWork = &v
		} else {
			r.logger.Warn("unparseable hours_until_return_to_work", "incident_id", rec.ID, "value", hours.String)
		}
	}
	return &rec, nil
}
