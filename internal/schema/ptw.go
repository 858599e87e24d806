package schema

// PermitToWork is the structured form of one permit-to-work request.
// All fields are strings and default to "".
type PermitToWork struct {
	VesselName        string `json:"vessel_name"`
	WorkDescription   string `json:"work_description"`
	WorkLocation      string `json:"work_location"`
	TracJSANumber     string `json:"trac_jsa_number"`
	RequiredEquipment string `json:"required_equipment"`
}

// PTWDescriptor targets the PermitToWork record shape.
var PTWDescriptor = Descriptor[PermitToWork]{
	Name: "permit-to-work",
	Intro: "You are reading a scanned marine permit-to-work (PTW) request form. " +
		"Extract the permit details from the attached page images.",
	Fields: []Field{
		{Name: "vessel_name", Kind: String},
		{Name: "work_description", Kind: String, Hint: "what work the permit authorizes"},
		{Name: "work_location", Kind: String, Hint: "where on the vessel the work takes place"},
		{Name: "trac_jsa_number", Kind: String, Hint: "job safety analysis reference number"},
		{Name: "required_equipment", Kind: String, Hint: "comma-separated list of equipment required for the work"},
	},
}
