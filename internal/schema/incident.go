package schema

// Incident is the structured form of one vessel safety-incident report.
// Every field is total after defaulting; only IPSignOnDatetime and
// HoursUntilReturnToWork may stay null.
type Incident struct {
	Date           string `json:"date"`
	TimeOfDay      string `json:"time_of_day"`
	VesselName     string `json:"vessel_name"`
	VesselLocation string `json:"vessel_location"`

	Client                string `json:"client"`
	ClientAdvised         bool   `json:"client_advised"`
	ProjectNoWellName     string `json:"project_no_well_name"`
	VesselConnectedToWell bool   `json:"vessel_connected_to_well"`

	RelatedToWork  bool   `json:"related_to_work"`
	Classification string `json:"classification"`
	TypeOfEvent    string `json:"type_of_event"`

	HumanFactorIdentified bool   `json:"human_factor_identified"`
	InvestigatedWithHIT   bool   `json:"investigated_with_hit"`
	LevelOfInvestigation  string `json:"level_of_investigation"`

	SeaState       string  `json:"sea_state"`
	SwellDirection string  `json:"swell_direction"`
	SwellPeriodS   float64 `json:"swell_period_s"`
	SwellHeightM   float64 `json:"swell_height_m"`

	IncidentLocationOnVessel string `json:"incident_location_on_vessel"`
	IncidentDescription      string `json:"incident_description"`
	JobRole                  string `json:"job_role"`

	WorkAtHeight                   bool `json:"work_at_height"`
	WorkInConfinedSpace            bool `json:"work_in_confined_space"`
	LiftingOperationIncident       bool `json:"lifting_operation_incident"`
	DroppedObject                  bool `json:"dropped_object"`
	EnvironmentalLossOfContainment bool `json:"environmental_loss_of_containment"`

	IPSignOnDatetime  *string `json:"ip_sign_on_datetime"`
	FirstShiftOnBoard bool    `json:"first_shift_on_board"`
	HoursAfterSignOn  float64 `json:"hours_after_sign_on"`

	InjuryStatus                string   `json:"injury_status"`
	InjuredPersonTransported    string   `json:"injured_person_transported"`
	FirstAidProvided            bool     `json:"first_aid_provided"`
	InjuredPersonMedivac        bool     `json:"injured_person_medivac"`
	InjuredPersonReturnedToWork bool     `json:"injured_person_returned_to_work"`
	HoursUntilReturnToWork      *float64 `json:"hours_until_return_to_work"`

	ToolsUsed                  string `json:"tools_used"`
	EquipmentInvolvedAffected  string `json:"equipment_involved_affected"`
	EquipmentIsolatedInhibited bool   `json:"equipment_isolated_inhibited"`
	EquipmentDamaged           string `json:"equipment_damaged"`

	PTWType          string `json:"ptw_type"`
	PTWNumber        string `json:"ptw_number"`
	TracJSACompleted bool   `json:"trac_jsa_completed"`

	TaskBeingPerformed                  string `json:"task_being_performed"`
	PPEWorn                             string `json:"ppe_worn"`
	PhotosCCTVAvailable                 bool   `json:"photos_cctv_available"`
	CorrectivePreventiveActionsAssigned string `json:"corrective_preventive_actions_assigned"`
}

// PTWTypes is the closed permit-type set; the empty string is the
// "no permit recorded" default.
var PTWTypes = []string{"", "HOT WORK", "COLD WORK"}

const datePattern = `^$|^\d{4}-\d{2}-\d{2}$`

// IncidentDescriptor targets the Incident record shape.
var IncidentDescriptor = Descriptor[Incident]{
	Name: "incident",
	Intro: "You are reading a scanned marine vessel safety-incident report. " +
		"Extract the incident details from the attached page images.",
	Fields: []Field{
		{Name: "date", Kind: String, Pattern: datePattern, Hint: "incident date as YYYY-MM-DD"},
		{Name: "time_of_day", Kind: String, Hint: "time of day including lighting condition, e.g. \"14:30 daylight\""},
		{Name: "vessel_name", Kind: String},
		{Name: "vessel_location", Kind: String, Hint: "geographic location of the vessel"},
		{Name: "client", Kind: String},
		{Name: "client_advised", Kind: Bool},
		{Name: "project_no_well_name", Kind: String, Hint: "project number or well name"},
		{Name: "vessel_connected_to_well", Kind: Bool},
		{Name: "related_to_work", Kind: Bool, Hint: "true when the event happened during work activity"},
		{Name: "classification", Kind: String, Hint: "severity classification, e.g. LTI, MTC, first aid case, near miss"},
		{Name: "type_of_event", Kind: String},
		{Name: "human_factor_identified", Kind: Bool},
		{Name: "investigated_with_hit", Kind: Bool, Hint: "true when a human-factors investigation tool was used"},
		{Name: "level_of_investigation", Kind: String},
		{Name: "sea_state", Kind: String},
		{Name: "swell_direction", Kind: String},
		{Name: "swell_period_s", Kind: Number, Hint: "swell period in seconds"},
		{Name: "swell_height_m", Kind: Number, Hint: "swell height in metres"},
		{Name: "incident_location_on_vessel", Kind: String, Hint: "deck, engine room, galley, etc."},
		{Name: "incident_description", Kind: String, Hint: "narrative description of what happened"},
		{Name: "job_role", Kind: String, Hint: "role of the injured/involved person"},
		{Name: "work_at_height", Kind: Bool},
		{Name: "work_in_confined_space", Kind: Bool},
		{Name: "lifting_operation_incident", Kind: Bool},
		{Name: "dropped_object", Kind: Bool},
		{Name: "environmental_loss_of_containment", Kind: Bool},
		{Name: "ip_sign_on_datetime", Kind: NullableString, Hint: "when the injured person signed on board, ISO 8601"},
		{Name: "first_shift_on_board", Kind: Bool},
		{Name: "hours_after_sign_on", Kind: Number, Hint: "hours between sign-on and the incident"},
		{Name: "injury_status", Kind: String},
		{Name: "injured_person_transported", Kind: String, Hint: "where the injured person was transported, if anywhere"},
		{Name: "first_aid_provided", Kind: Bool},
		{Name: "injured_person_medivac", Kind: Bool},
		{Name: "injured_person_returned_to_work", Kind: Bool},
		{Name: "hours_until_return_to_work", Kind: NullableNumber},
		{Name: "tools_used", Kind: String},
		{Name: "equipment_involved_affected", Kind: String},
		{Name: "equipment_isolated_inhibited", Kind: Bool},
		{Name: "equipment_damaged", Kind: String, Hint: "description of equipment damage"},
		{Name: "ptw_type", Kind: String, Enum: PTWTypes, Hint: "permit-to-work type"},
		{Name: "ptw_number", Kind: String},
		{Name: "trac_jsa_completed", Kind: Bool, Hint: "true when a TRAC/JSA was completed for the task"},
		{Name: "task_being_performed", Kind: String},
		{Name: "ppe_worn", Kind: String},
		{Name: "photos_cctv_available", Kind: Bool},
		{Name: "corrective_preventive_actions_assigned", Kind: String},
	},
}
