package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validApp() *Application {
	return &Application{
		PersonalInfo: PersonalInfo{
			FirstName:     "Ahmed",
			MiddleName:    "Mohamed",
			FamilyName:    "Hassan",
			DateOfBirth:   "1990-05-14",
			PlaceOfBirth:  "Amman",
			Sex:           "Male",
			MaritalStatus: "Married",
		},
		Nationality: Nationality{Present: "Jordanian", Origin: "Jordanian"},
		Occupation:  Occupation{OccupationArabic: "مهندس"},
		Passport: Passport{
			Number:    "N1234567",
			Type:      "Ordinary",
			IssuedAt:  "Amman",
			IssuedOn:  "2020-01-10",
			ExpiresOn: "2030-01-09",
		},
		Addresses: Addresses{Permanent: "Amman, Jordan", Present: "Amman, Jordan"},
		VisaDetails: VisaDetails{
			VisaType:         "Single",
			DurationOfStay:   "30 days",
			DateOfArrival:    "2026-09-01",
			PurposeOfVisit:   "Tourism",
			AddressInCountry: "Cairo Hotel",
			PortOfEntry:      "Cairo Airport",
		},
		Contact:   Contact{PhoneNumber: "+962790000000"},
		Relatives: []Relative{{FullName: "Omar Hassan", Address: "Cairo"}},
	}
}

func TestValidate_ValidApplication(t *testing.T) {
	if errs := validApp().Validate(); len(errs) != 0 {
		t.Errorf("expected no validation errors, got %v", errs)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	app := validApp()
	app.PersonalInfo.FirstName = ""
	app.Passport.Number = ""

	errs := app.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	joined := strings.Join(errs, "; ")
	if !strings.Contains(joined, "first name") || !strings.Contains(joined, "passport number") {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidate_EnumFields(t *testing.T) {
	app := validApp()
	app.PersonalInfo.Sex = "Other"
	app.PersonalInfo.MaritalStatus = "Divorced"
	app.VisaDetails.VisaType = "Triple"

	errs := app.Validate()
	if len(errs) != 3 {
		t.Errorf("expected 3 enum errors, got %v", errs)
	}
}

func TestValidate_DateFormat(t *testing.T) {
	app := validApp()
	app.Passport.IssuedOn = "10/01/2020"

	errs := app.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0], "passport issued on") {
		t.Errorf("expected date format error, got %v", errs)
	}
}

func TestValidate_IncompleteRelative(t *testing.T) {
	app := validApp()
	app.Relatives = append(app.Relatives, Relative{FullName: "No Address"})

	errs := app.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0], "relative 2") {
		t.Errorf("expected relative error, got %v", errs)
	}
}

func TestParse_RoundTripFromWireFormat(t *testing.T) {
	data := []byte(`{
		"personal_info": {"first_name": "Lina", "family_name": "Odeh", "sex": "Female"},
		"passport": {"passport_number": "P777"},
		"relatives_in_egypt": [{"full_name": "X", "address": "Y"}]
	}`)
	app, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if app.PersonalInfo.FirstName != "Lina" || app.Passport.Number != "P777" {
		t.Errorf("unexpected decode: %+v", app)
	}
	if len(app.Relatives) != 1 {
		t.Errorf("relatives: got %d, want 1", len(app.Relatives))
	}
}

func TestOutputFilename(t *testing.T) {
	app := validApp()
	now := time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC)
	got := app.OutputFilename(now)
	want := "Ahmed_Hassan_20260823_143005.pdf"
	if got != want {
		t.Errorf("OutputFilename: got %q, want %q", got, want)
	}
}

func TestLoadDirectory_PartialFailures(t *testing.T) {
	dir := t.TempDir()
	good := `{"personal_info": {"first_name": "A", "family_name": "B"}}`
	if err := os.WriteFile(filepath.Join(dir, "a_good.json"), []byte(good), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b_bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	apps, failures, err := LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("apps: got %d, want 1", len(apps))
	}
	if len(failures) != 1 {
		t.Errorf("failures: got %d, want 1", len(failures))
	}
}
