package model

// Record field names as they appear in the source spreadsheet's header row.
const (
	FieldEmail          = "Email"
	FieldFirstName      = "First Name"
	FieldLastName       = "Last Name"
	FieldCompany        = "Company"
	FieldPhone          = "Phone Number"
	FieldLifecycleStage = "Lifecycle Stage"
)

// ContactRecord is one row from the record source, keyed by header name.
// Missing cells are absent or empty strings; no local uniqueness is enforced.
type ContactRecord map[string]string

// Email returns the dedupe key. An empty value means the record is skipped
// without any remote call.
func (r ContactRecord) Email() string { return r[FieldEmail] }

// Company returns the referenced company name, empty when the record has none.
func (r ContactRecord) Company() string { return r[FieldCompany] }

// ContactProperties is the property payload sent to the CRM contact create
// endpoint. Field values pass through verbatim from the record; missing
// optional fields stay empty.
type ContactProperties struct {
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Email          string `json:"email"`
	Company        string `json:"company,omitempty"`
	Phone          string `json:"phone,omitempty"`
	LifecycleStage string `json:"lifecyclestage,omitempty"`
}

// PropertiesFromRecord maps a source record onto the CRM property names.
func PropertiesFromRecord(r ContactRecord) ContactProperties {
	return ContactProperties{
		FirstName:      r[FieldFirstName],
		LastName:       r[FieldLastName],
		Email:          r[FieldEmail],
		Company:        r[FieldCompany],
		Phone:          r[FieldPhone],
		LifecycleStage: r[FieldLifecycleStage],
	}
}

// Contact is the remote representation of a created contact. Only the
// remote-assigned identifier matters to the pipeline.
type Contact struct {
	ID         string
	Properties ContactProperties
}
