// Package application models a visa application and its validation rules.
package application

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Relative is a relative or friend in the destination country.
type Relative struct {
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

// PersonalInfo is the applicant identity section.
type PersonalInfo struct {
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	FamilyName    string `json:"family_name"`
	DateOfBirth   string `json:"date_of_birth"`
	PlaceOfBirth  string `json:"place_of_birth"`
	Sex           string `json:"sex"`
	MaritalStatus string `json:"marital_status"`
}

// Nationality holds present and origin nationality.
type Nationality struct {
	Present string `json:"present_nationality"`
	Origin  string `json:"nationality_of_origin"`
}

// Occupation holds the occupation text as the form expects it.
type Occupation struct {
	OccupationArabic string `json:"occupation_arabic"`
}

// Passport is the travel document section.
type Passport struct {
	Number    string `json:"passport_number"`
	Type      string `json:"passport_type"`
	IssuedAt  string `json:"issued_at"`
	IssuedOn  string `json:"issued_on"`
	ExpiresOn string `json:"expires_on"`
}

// Addresses holds permanent and present address.
type Addresses struct {
	Permanent string `json:"permanent_address"`
	Present   string `json:"present_address"`
}

// VisaDetails is the visa request section.
type VisaDetails struct {
	VisaType       string `json:"visa_type"`
	DurationOfStay string `json:"duration_of_stay"`
	DateOfArrival  string `json:"date_of_arrival"`
	PurposeOfVisit string `json:"purpose_of_visit"`
	AddressInCountry string `json:"address_in_egypt"`
	PortOfEntry    string `json:"port_of_entry"`
}

// Contact holds contact details.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
}

// Application is one complete visa application as submitted over JSON.
type Application struct {
	PersonalInfo PersonalInfo `json:"personal_info"`
	Nationality  Nationality  `json:"nationality"`
	Occupation   Occupation   `json:"occupation"`
	Passport     Passport     `json:"passport"`
	Addresses    Addresses    `json:"addresses"`
	VisaDetails  VisaDetails  `json:"visa_details"`
	Contact      Contact      `json:"contact"`
	Relatives    []Relative   `json:"relatives_in_egypt"`
}

// Parse decodes a JSON application.
func Parse(data []byte) (*Application, error) {
	var app Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("parse application: %w", err)
	}
	return &app, nil
}

// LoadFromFile reads and decodes one application file.
func LoadFromFile(path string) (*Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read application: %w", err)
	}
	return Parse(data)
}

// LoadDirectory loads every *.json application in dir, sorted by filename.
// Files that fail to parse are returned as errors keyed by path; valid
// applications still load.
func LoadDirectory(dir string) ([]*Application, map[string]error, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("scan data dir: %w", err)
	}
	sort.Strings(matches)

	var apps []*Application
	failures := make(map[string]error)
	for _, path := range matches {
		app, err := LoadFromFile(path)
		if err != nil {
			failures[path] = err
			continue
		}
		apps = append(apps, app)
	}
	return apps, failures, nil
}

// ApplicantName is the display name used in logs, results and filenames.
func (a *Application) ApplicantName() string {
	return strings.TrimSpace(a.PersonalInfo.FirstName + " " + a.PersonalInfo.FamilyName)
}

// OutputFilename generates the PDF filename for this application.
func (a *Application) OutputFilename(now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.pdf",
		sanitize(a.PersonalInfo.FirstName),
		sanitize(a.PersonalInfo.FamilyName),
		now.Format("20060102_150405"))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, s)
}

// Validate checks required fields, enumerations and date formats.
// Returns every problem found, not just the first.
func (a *Application) Validate() []string {
	var errs []string

	required := []struct {
		name  string
		value string
	}{
		{"first name", a.PersonalInfo.FirstName},
		{"middle name", a.PersonalInfo.MiddleName},
		{"family name", a.PersonalInfo.FamilyName},
		{"date of birth", a.PersonalInfo.DateOfBirth},
		{"place of birth", a.PersonalInfo.PlaceOfBirth},
		{"sex", a.PersonalInfo.Sex},
		{"marital status", a.PersonalInfo.MaritalStatus},
		{"present nationality", a.Nationality.Present},
		{"nationality of origin", a.Nationality.Origin},
		{"occupation", a.Occupation.OccupationArabic},
		{"passport number", a.Passport.Number},
		{"passport type", a.Passport.Type},
		{"passport issued at", a.Passport.IssuedAt},
		{"passport issued on", a.Passport.IssuedOn},
		{"passport expires on", a.Passport.ExpiresOn},
		{"permanent address", a.Addresses.Permanent},
		{"present address", a.Addresses.Present},
		{"visa type", a.VisaDetails.VisaType},
		{"duration of stay", a.VisaDetails.DurationOfStay},
		{"date of arrival", a.VisaDetails.DateOfArrival},
		{"purpose of visit", a.VisaDetails.PurposeOfVisit},
		{"address in country", a.VisaDetails.AddressInCountry},
		{"port of entry", a.VisaDetails.PortOfEntry},
		{"phone number", a.Contact.PhoneNumber},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, f.name+" is required")
		}
	}

	if s := a.PersonalInfo.Sex; s != "" && s != "Male" && s != "Female" {
		errs = append(errs, fmt.Sprintf("invalid sex value: %s (must be Male or Female)", s))
	}
	if m := a.PersonalInfo.MaritalStatus; m != "" {
		switch m {
		case "Single", "Married", "Widow", "Widower":
		default:
			errs = append(errs, fmt.Sprintf("invalid marital status: %s", m))
		}
	}
	if v := a.VisaDetails.VisaType; v != "" && v != "Single" && v != "Multiple" {
		errs = append(errs, fmt.Sprintf("invalid visa type: %s (must be Single or Multiple)", v))
	}

	dates := []struct {
		name  string
		value string
	}{
		{"date of birth", a.PersonalInfo.DateOfBirth},
		{"passport issued on", a.Passport.IssuedOn},
		{"passport expires on", a.Passport.ExpiresOn},
		{"date of arrival", a.VisaDetails.DateOfArrival},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d.value); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s format: %s (want YYYY-MM-DD)", d.name, d.value))
		}
	}

	for i, r := range a.Relatives {
		if r.FullName == "" || r.Address == "" {
			errs = append(errs, fmt.Sprintf("relative %d has incomplete information", i+1))
		}
	}

	return errs
}
