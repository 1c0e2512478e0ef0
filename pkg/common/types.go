package common

import (
	"strings"
)

// UserProfile holds the applicant data supplied once per invocation
type UserProfile struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	BackgroundInfo string `json:"backgroundInfo"`

	LinkedIn     string `json:"linkedin,omitempty"`
	Portfolio    string `json:"portfolio,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	Country      string `json:"country,omitempty"`
	Salary       string `json:"salary,omitempty"`
	Availability string `json:"availability,omitempty"`
	ResumeURL    string `json:"resumeUrl,omitempty"`
}

// FullName joins first and last name
func (p UserProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PhoneValue returns phone, falling back to the phoneNumber alias
func (p UserProfile) PhoneValue() string {
	if p.Phone != "" {
		return p.Phone
	}
	return p.PhoneNumber
}

// FieldPurpose is the semantic tag assigned to a form control
type FieldPurpose string

const (
	PurposeFirstName     FieldPurpose = "firstName"
	PurposeLastName      FieldPurpose = "lastName"
	PurposeFullName      FieldPurpose = "fullName"
	PurposeEmail         FieldPurpose = "email"
	PurposePhone         FieldPurpose = "phone"
	PurposeCoverLetter   FieldPurpose = "coverLetter"
	PurposeWhyInterested FieldPurpose = "whyInterested"
	PurposeExperience    FieldPurpose = "experience"
	PurposeResume        FieldPurpose = "resume"
	PurposeLinkedIn      FieldPurpose = "linkedin"
	PurposePortfolio     FieldPurpose = "portfolio"
	PurposeSalary        FieldPurpose = "salary"
	PurposeAvailability  FieldPurpose = "availability"
	PurposeAddress       FieldPurpose = "address"
	PurposeCity          FieldPurpose = "city"
	PurposeState         FieldPurpose = "state"
	PurposeZipCode       FieldPurpose = "zipCode"
	PurposeCountry       FieldPurpose = "country"
	PurposeUnknown       FieldPurpose = "unknown"
)

// Option is a single <option> of a select control
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Field is a snapshot of one form control, taken fresh from the DOM
type Field struct {
	Index       int      `json:"index"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Placeholder string   `json:"placeholder"`
	AriaLabel   string   `json:"ariaLabel"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Visible     bool     `json:"visible"`
	Options     []Option `json:"options,omitempty"`
}

// IsSelect reports whether the control is a <select>
func (f Field) IsSelect() bool {
	return strings.EqualFold(f.Tag, "select")
}

// Signature identifies a control across DOM re-renders
func (f Field) Signature() string {
	return strings.Join([]string{
		strings.ToLower(f.Tag),
		strings.ToLower(f.Type),
		f.Name,
		f.ID,
		f.Placeholder,
		f.AriaLabel,
		f.Label,
	}, "|")
}

// Identified reports whether anything besides tag and type tells the
// control apart from its siblings
func (f Field) Identified() bool {
	for _, s := range []string{f.Name, f.ID, f.Placeholder, f.AriaLabel, f.Label} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Question returns the most human-readable description of the control
func (f Field) Question() string {
	for _, s := range []string{f.Label, f.AriaLabel, f.Placeholder, f.Name, f.ID} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// JobInfo is what could be scraped about the posting itself
type JobInfo struct {
	CompanyName    string `json:"companyName"`
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// Outcome of processing a single control
type Outcome string

const (
	OutcomeFilled   Outcome = "filled"
	OutcomeSelected Outcome = "selected"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeEmpty    Outcome = "empty"
	OutcomeNoOption Outcome = "no-option"
	OutcomeFailed   Outcome = "failed"
)

// FieldResult records what happened to one control
type FieldResult struct {
	Index   int          `json:"index"`
	Tag     string       `json:"tag"`
	Purpose FieldPurpose `json:"purpose,omitempty"`
	Outcome Outcome      `json:"outcome"`
	Value   string       `json:"value,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// Summary is the outcome of a fill run
type Summary struct {
	Job          JobInfo       `json:"job"`
	FieldsFound  int           `json:"fieldsFound"`
	FieldsFilled int           `json:"fieldsFilled"`
	Fields       []FieldResult `json:"fields"`
}

// PageDiagnostics describes the loaded page for debugging empty runs
type PageDiagnostics struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Forms         int      `json:"forms"`
	Interactive   int      `json:"interactive"`
	FirstControls []string `json:"firstControls"`
}
