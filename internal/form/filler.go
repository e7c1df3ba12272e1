// Package form drives field-by-field entry of a visa application into the
// remote web form.
package form

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"visaflow/internal/application"
	"visaflow/internal/browser"
	"visaflow/internal/config"
	"visaflow/internal/logging"
)

const dateLayout = "2006-01-02"

// The form labels its month options bilingually.
var monthLabels = map[time.Month]string{
	time.January:   "يناير / January",
	time.February:  "فبراير / February",
	time.March:     "مارس / March",
	time.April:     "أبريل / April",
	time.May:       "مايو / May",
	time.June:      "يونيو / June",
	time.July:      "يوليو / July",
	time.August:    "أغسطس / August",
	time.September: "سبتمبر / September",
	time.October:   "أكتوبر / October",
	time.November:  "نوفمبر / November",
	time.December:  "ديسمبر / December",
}

// The page reuses one set of selector names (birthday[...]) for all four
// date dropdown groups; only document order tells them apart.
const (
	dateSetBirth   = 0
	dateSetIssued  = 1
	dateSetExpires = 2
	dateSetArrival = 3
)

// Default selectors for the indexed date dropdown groups; overridable via
// form_selectors.
const (
	defaultMonthSelector = "select[name='birthday[month]']"
	defaultDaySelector   = "select[name='birthday[day]']"
	defaultYearSelector  = "select[name='birthday[year]']"
)

// submitCandidates are tried in order when looking for the "create and
// print" control; the XPath matches the button by its Arabic or English text.
var submitCandidates = []string{
	"button[type='submit']",
	"//button[contains(text(), 'أنشاء و طباعة النموذج') or contains(text(), 'Create and print')]",
	".btn-primary",
	"button.create-print",
}

// Filler fills the complete application form on one browser session.
type Filler struct {
	session *browser.Session
	cfg     *config.Config
}

// NewFiller returns a filler bound to the session and config.
func NewFiller(session *browser.Session, cfg *config.Config) *Filler {
	return &Filler{session: session, cfg: cfg}
}

func (f *Filler) selector(field string) (string, error) {
	sel, ok := f.cfg.FormSelectors[field]
	if !ok || sel == "" {
		return "", fmt.Errorf("no selector configured for field %q", field)
	}
	return sel, nil
}

func (f *Filler) selectorOr(field, fallback string) string {
	if sel, ok := f.cfg.FormSelectors[field]; ok && sel != "" {
		return sel
	}
	return fallback
}

// fillText fills a text input or textarea. Optional fields with empty
// values are skipped.
func (f *Filler) fillText(ctx context.Context, field, value string, required bool) error {
	if value == "" && !required {
		return nil
	}
	sel, err := f.selector(field)
	if err != nil {
		return err
	}
	if err := f.session.SetValue(ctx, sel, value); err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	return nil
}

// selectMapped selects a dropdown value, translating the canonical data
// value to the form's visible option text through mapping when present.
func (f *Filler) selectMapped(ctx context.Context, field, value string, mapping map[string]string) error {
	sel, err := f.selector(field)
	if err != nil {
		return err
	}
	if mapped, ok := mapping[value]; ok {
		value = mapped
	}
	if err := f.session.SelectByText(ctx, sel, value); err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	return nil
}

// fillIndexedDate fills the nth birthday[...] dropdown group with date.
func (f *Filler) fillIndexedDate(ctx context.Context, set int, date string) error {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	monthSel := f.selectorOr("date_dropdown_month", defaultMonthSelector)
	daySel := f.selectorOr("date_dropdown_day", defaultDaySelector)
	yearSel := f.selectorOr("date_dropdown_year", defaultYearSelector)

	if err := f.session.SelectIndexedByText(ctx, monthSel, set, monthLabels[d.Month()]); err != nil {
		return fmt.Errorf("date set %d month: %w", set, err)
	}
	if err := f.session.SelectIndexedByText(ctx, daySel, set, strconv.Itoa(d.Day())); err != nil {
		return fmt.Errorf("date set %d day: %w", set, err)
	}
	if err := f.session.SelectIndexedByText(ctx, yearSel, set, strconv.Itoa(d.Year())); err != nil {
		return fmt.Errorf("date set %d year: %w", set, err)
	}
	return nil
}

// fillDate enters a date. When a direct selector is configured for the field
// the page variant with a single (possibly hidden) date input is assumed;
// otherwise the date goes into the indexed dropdown group.
func (f *Filler) fillDate(ctx context.Context, field string, set int, date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid date for %s: %q", field, date)
	}
	sel, ok := f.cfg.FormSelectors[field]
	if !ok || sel == "" {
		return f.fillIndexedDate(ctx, set, date)
	}
	hidden, err := f.session.IsHidden(ctx, sel)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	if hidden {
		return f.session.SetValueJS(ctx, sel, date)
	}
	return f.session.SetValue(ctx, sel, date)
}

// FillAll enters the complete application, section by section.
func (f *Filler) FillAll(ctx context.Context, app *application.Application) error {
	logger := logging.New("form-filler")

	logger.Info("filling personal information")
	p := app.PersonalInfo
	if err := f.fillText(ctx, "first_name", p.FirstName, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "middle_name", p.MiddleName, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "family_name", p.FamilyName, true); err != nil {
		return err
	}
	if err := f.fillDate(ctx, "date_of_birth", dateSetBirth, p.DateOfBirth); err != nil {
		return err
	}
	if err := f.fillText(ctx, "place_of_birth", p.PlaceOfBirth, true); err != nil {
		return err
	}
	if err := f.selectMapped(ctx, "sex", p.Sex, f.cfg.SexMapping); err != nil {
		return err
	}
	if err := f.selectMapped(ctx, "marital_status", p.MaritalStatus, f.cfg.MaritalStatusMapping); err != nil {
		return err
	}

	logger.Info("filling nationality")
	if err := f.fillText(ctx, "present_nationality", app.Nationality.Present, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "nationality_of_origin", app.Nationality.Origin, true); err != nil {
		return err
	}

	logger.Info("filling occupation")
	if err := f.fillText(ctx, "occupation_arabic", app.Occupation.OccupationArabic, true); err != nil {
		return err
	}

	logger.Info("filling passport")
	pp := app.Passport
	if err := f.fillText(ctx, "passport_number", pp.Number, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "passport_type", pp.Type, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "issued_at", pp.IssuedAt, true); err != nil {
		return err
	}
	if err := f.fillDate(ctx, "issued_on", dateSetIssued, pp.IssuedOn); err != nil {
		return err
	}
	if err := f.fillDate(ctx, "expires_on", dateSetExpires, pp.ExpiresOn); err != nil {
		return err
	}

	logger.Info("filling addresses")
	if err := f.fillText(ctx, "permanent_address", app.Addresses.Permanent, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "present_address", app.Addresses.Present, true); err != nil {
		return err
	}

	logger.Info("filling visa details")
	v := app.VisaDetails
	if err := f.selectMapped(ctx, "visa_type", v.VisaType, f.cfg.VisaTypeMapping); err != nil {
		return err
	}
	if err := f.fillText(ctx, "duration_of_stay", v.DurationOfStay, true); err != nil {
		return err
	}
	if err := f.fillDate(ctx, "date_of_arrival", dateSetArrival, v.DateOfArrival); err != nil {
		return err
	}
	if err := f.fillText(ctx, "purpose_of_visit", v.PurposeOfVisit, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "address_in_egypt", v.AddressInCountry, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "port_of_entry", v.PortOfEntry, true); err != nil {
		return err
	}

	logger.Info("filling contact")
	if err := f.fillText(ctx, "phone_number", app.Contact.PhoneNumber, true); err != nil {
		return err
	}

	if err := f.fillRelatives(ctx, app.Relatives); err != nil {
		return err
	}

	logger.Info("form filled")
	return nil
}

// fillRelatives enters the first relative into the default fields. Extra
// relatives need the page's "add another person" control, which injects
// fields this filler fills best-effort: a failure there is logged, not fatal.
func (f *Filler) fillRelatives(ctx context.Context, relatives []application.Relative) error {
	logger := logging.New("form-filler")
	if len(relatives) == 0 {
		return nil
	}

	logger.Info("filling relatives", "count", len(relatives))
	if err := f.fillText(ctx, "relative_name", relatives[0].FullName, true); err != nil {
		return err
	}
	if err := f.fillText(ctx, "relative_address", relatives[0].Address, true); err != nil {
		return err
	}

	for i := 1; i < len(relatives); i++ {
		addSel, err := f.selector("add_relative_button")
		if err != nil {
			logger.Warn("additional relative skipped: no add button selector", "index", i+1)
			return nil
		}
		if err := f.session.Click(ctx, addSel); err != nil {
			logger.Warn("could not add relative", "index", i+1, "error", err)
			return nil
		}
	}
	return nil
}

// SubmitAction returns the no-argument trigger the wait orchestrator runs:
// find the "create and print" control among the candidates and click it.
// Failure here is the one fatal error of the guarded submission.
func (f *Filler) SubmitAction() func(context.Context) error {
	return func(ctx context.Context) error {
		candidates := submitCandidates
		if sel, ok := f.cfg.FormSelectors["submit_button"]; ok && sel != "" {
			candidates = append([]string{sel}, candidates...)
		}
		used, err := f.session.ClickFirst(ctx, candidates)
		if err != nil {
			return fmt.Errorf("create-and-print button: %w", err)
		}
		logging.New("form-filler").Info("submit clicked", "selector", used)
		return nil
	}
}
