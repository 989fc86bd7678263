package fhirmodels

// Common FHIR value set constants used across the application.

// Terminology system URLs.
const (
	SystemLOINC             = "http://loinc.org"
	SystemUCUM              = "http://unitsofmeasure.org"
	SystemConditionClinical = "http://terminology.hl7.org/CodeSystem/condition-clinical"
)

// LOINC vital-sign codes referenced by derivation rules and the synthetic
// data generator.
const (
	LOINCBodyTemperature = "8310-5"
	LOINCHeartRate       = "8867-4"
	LOINCOxygenSat       = "59408-5"
)

// EncounterStatus values per FHIR R4.
const (
	EncounterStatusPlanned    = "planned"
	EncounterStatusInProgress = "in-progress"
	EncounterStatusFinished   = "finished"
	EncounterStatusCancelled  = "cancelled"
)

// EncounterClass codes per FHIR R4 v3-ActCode.
const (
	EncounterClassAmbulatory = "AMB"
	EncounterClassEmergency  = "EMER"
	EncounterClassInpatient  = "IMP"
	EncounterClassVirtual    = "VR"
)

// ConditionClinicalStatus codes.
const (
	ConditionActive   = "active"
	ConditionInactive = "inactive"
	ConditionResolved = "resolved"
)

// MedicationStatementStatus codes.
const (
	MedicationStatementActive    = "active"
	MedicationStatementCompleted = "completed"
	MedicationStatementStopped   = "stopped"
)

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)
