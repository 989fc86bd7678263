package fhir

// Coding is one (system, code, display) triple inside a CodeableConcept.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a coded value with optional free text.
type CodeableConcept struct {
	Text   string   `json:"text,omitempty"`
	Coding []Coding `json:"coding,omitempty"`
}

// Quantity is a numeric value with a unit. Value is a pointer so that an
// absent value can be told apart from zero.
type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Reference points at another resource by relative id, e.g. "Patient/p1".
type Reference struct {
	Reference string `json:"reference,omitempty"`
}

// HumanName holds the name parts the mapper composes into a display name.
type HumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// Patient is the demographic subset of a FHIR Patient.
type Patient struct {
	ID        string      `json:"id,omitempty"`
	Gender    string      `json:"gender,omitempty"`
	BirthDate string      `json:"birthDate,omitempty"`
	Name      []HumanName `json:"name,omitempty"`
}

// Observation is the subset of a FHIR Observation the mapper reads. The
// three value[x] variants are kept separate; resolution order is quantity,
// then string, then codeable concept.
type Observation struct {
	ID                   string           `json:"id,omitempty"`
	Status               string           `json:"status,omitempty"`
	Code                 *CodeableConcept `json:"code,omitempty"`
	Subject              *Reference       `json:"subject,omitempty"`
	ValueQuantity        *Quantity        `json:"valueQuantity,omitempty"`
	ValueString          *string          `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
}

// Encounter is the subset of a FHIR Encounter the mapper reads.
type Encounter struct {
	ID      string     `json:"id,omitempty"`
	Status  string     `json:"status,omitempty"`
	Class   *Coding    `json:"class,omitempty"`
	Subject *Reference `json:"subject,omitempty"`
}

// Condition is the subset of a FHIR Condition the mapper reads.
type Condition struct {
	ID             string           `json:"id,omitempty"`
	Code           *CodeableConcept `json:"code,omitempty"`
	ClinicalStatus *CodeableConcept `json:"clinicalStatus,omitempty"`
	Subject        *Reference       `json:"subject,omitempty"`
}

// MedicationStatement is the subset of a FHIR MedicationStatement the
// mapper reads.
type MedicationStatement struct {
	ID                        string           `json:"id,omitempty"`
	Status                    string           `json:"status,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
}
