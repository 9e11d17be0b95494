// Package model defines the record types shared across the directory pipeline.
package model

import "time"

// OrgType discriminates the tagged union of organization records. Each type
// carries the shared base fields plus an optional type-specific extension.
type OrgType string

const (
	OrgTypeNARRResidence   OrgType = "narr_residence"
	OrgTypeRecoveryCenter  OrgType = "recovery_center"
	OrgTypeRecoveryOrg     OrgType = "recovery_org"
	OrgTypeTreatmentCenter OrgType = "treatment_center"
	OrgTypeOxfordHouse     OrgType = "oxford_house"
)

// orgTypePrefixes maps each organization type to its canonical ID prefix.
var orgTypePrefixes = map[OrgType]string{
	OrgTypeNARRResidence:   "ORG",
	OrgTypeRecoveryCenter:  "RCC",
	OrgTypeRecoveryOrg:     "RCO",
	OrgTypeTreatmentCenter: "TRT",
	OrgTypeOxfordHouse:     "OXH",
}

// Valid reports whether t is one of the known organization types.
func (t OrgType) Valid() bool {
	_, ok := orgTypePrefixes[t]
	return ok
}

// Prefix returns the canonical ID prefix for the type ("ORG" for
// narr_residence, "TRT" for treatment_center, ...). Unknown types fall back
// to "ORG" so malformed input can still be reported with a readable ID.
func (t OrgType) Prefix() string {
	if p, ok := orgTypePrefixes[t]; ok {
		return p
	}
	return "ORG"
}

// OrgTypes lists all known organization types in a fixed order.
func OrgTypes() []OrgType {
	return []OrgType{
		OrgTypeNARRResidence,
		OrgTypeRecoveryCenter,
		OrgTypeRecoveryOrg,
		OrgTypeTreatmentCenter,
		OrgTypeOxfordHouse,
	}
}

// Address holds a postal address. Every component is optional; sources
// frequently report only a city/state pair.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Empty reports whether no address component is populated.
func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == ""
}

// Coordinates holds a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Certification holds certification info as reported by one source.
type Certification struct {
	Level     string `json:"level,omitempty"`
	Number    string `json:"number,omitempty"`
	Authority string `json:"authority,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ResidenceInfo is the extension for narr_residence and oxford_house records.
type ResidenceInfo struct {
	Capacity     int      `json:"capacity,omitempty"`
	HousingTypes []string `json:"housing_types,omitempty"`
	Vacancies    int      `json:"vacancies,omitempty"`
}

// TreatmentInfo is the extension for treatment_center records.
type TreatmentInfo struct {
	LevelOfCare string `json:"level_of_care,omitempty"` // outpatient, residential, inpatient
}

// RawRecord is one organization as reported by one source extraction run.
// Records are immutable after ingestion; the pipeline only reads them.
type RawRecord struct {
	SourceID       string         `json:"source_id"`
	OrgType        OrgType        `json:"organization_type"`
	Name           string         `json:"name"`
	DBANames       []string       `json:"dba_names,omitempty"`
	Address        Address        `json:"address"`
	Coordinates    *Coordinates   `json:"coordinates,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Website        string         `json:"website,omitempty"`
	Services       []string       `json:"services,omitempty"`
	Certification  *Certification `json:"certification,omitempty"`
	ExtractionDate time.Time      `json:"extraction_date"`
	QualityHint    float64        `json:"raw_quality_hint,omitempty"`

	// Type-specific extensions, at most one populated per OrgType.
	Residence *ResidenceInfo `json:"residence,omitempty"`
	Treatment *TreatmentInfo `json:"treatment,omitempty"`
}

// HasIdentifyingField reports whether the record carries at least one signal
// besides its name that could anchor a match: address, phone, email, website,
// or coordinates.
func (r RawRecord) HasIdentifyingField() bool {
	return !r.Address.Empty() || r.Phone != "" || r.Email != "" ||
		r.Website != "" || r.Coordinates != nil
}
