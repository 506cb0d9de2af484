package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// --- Mock CRM client ---

type contactCreate struct {
	Props model.ContactProperties
}

type association struct {
	ContactID string
	CompanyID string
}

type mockCRM struct {
	contactExists bool
	searchErr     error
	searches      []string

	createdContact *model.Contact
	createErr      error
	creates        []contactCreate

	companyID        string
	companySearchErr error
	companySearches  []string

	createdCompanyID string
	companyCreateErr error
	companyCreates   []string

	associateErr error
	associations []association
}

func (m *mockCRM) SearchContactByEmail(_ context.Context, email, _ string) (bool, error) {
	m.searches = append(m.searches, email)
	if m.searchErr != nil {
		return false, m.searchErr
	}
	return m.contactExists, nil
}

func (m *mockCRM) CreateContact(_ context.Context, props model.ContactProperties, _ string) (*model.Contact, error) {
	m.creates = append(m.creates, contactCreate{Props: props})
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.createdContact != nil {
		return m.createdContact, nil
	}
	return &model.Contact{ID: "contact-1", Properties: props}, nil
}

func (m *mockCRM) SearchCompanyByName(_ context.Context, name, _ string) (string, error) {
	m.companySearches = append(m.companySearches, name)
	if m.companySearchErr != nil {
		return "", m.companySearchErr
	}
	return m.companyID, nil
}

func (m *mockCRM) CreateCompany(_ context.Context, name, _ string) (string, error) {
	m.companyCreates = append(m.companyCreates, name)
	if m.companyCreateErr != nil {
		return "", m.companyCreateErr
	}
	return m.createdCompanyID, nil
}

func (m *mockCRM) AssociateContactWithCompany(_ context.Context, contactID, companyID, _ string) error {
	m.associations = append(m.associations, association{ContactID: contactID, CompanyID: companyID})
	return m.associateErr
}

func fullRecord() model.ContactRecord {
	return model.ContactRecord{
		model.FieldEmail:          "jane@acme.test",
		model.FieldFirstName:      "Jane",
		model.FieldLastName:       "Doe",
		model.FieldCompany:        "Acme",
		model.FieldPhone:          "555-0100",
		model.FieldLifecycleStage: "lead",
	}
}

func defaultOptions() UpsertOptions {
	return UpsertOptions{Dedupe: true, CompanyLink: true}
}

func TestUpload_SkipsRecordWithoutEmail(t *testing.T) {
	crm := &mockCRM{}
	svc := NewUpsertService(crm, defaultOptions())

	rec := fullRecord()
	delete(rec, model.FieldEmail)

	out := svc.Upload(context.Background(), rec, "token")

	assert.Equal(t, model.OutcomeSkippedNoEmail, out.Outcome)
	assert.Equal(t, "Jane", out.FirstName)
	assert.Empty(t, crm.searches, "no remote call for a record without email")
	assert.Empty(t, crm.creates)
}

func TestUpload_SkipsDuplicate(t *testing.T) {
	crm := &mockCRM{contactExists: true}
	svc := NewUpsertService(crm, defaultOptions())

	out := svc.Upload(context.Background(), fullRecord(), "token")

	assert.Equal(t, model.OutcomeSkippedDuplicate, out.Outcome)
	assert.Equal(t, []string{"jane@acme.test"}, crm.searches)
	assert.Empty(t, crm.creates, "a duplicate must not be created again")
	assert.Empty(t, crm.companySearches)
}

func TestUpload_CreatesContactWithCompanyAssociation(t *testing.T) {
	crm := &mockCRM{
		createdContact:   &model.Contact{ID: "contact-42"},
		createdCompanyID: "company-7",
	}
	svc := NewUpsertService(crm, defaultOptions())

	out := svc.Upload(context.Background(), fullRecord(), "token")

	assert.Equal(t, model.OutcomeCreated, out.Outcome)
	assert.Equal(t, "contact-42", out.ContactID)

	// Company absent remotely: searched once, created once, associated once.
	assert.Equal(t, []string{"Acme"}, crm.companySearches)
	assert.Equal(t, []string{"Acme"}, crm.companyCreates)
	assert.Equal(t, []association{{ContactID: "contact-42", CompanyID: "company-7"}}, crm.associations)

	// The company name still rides along as a plain contact property.
	require.Len(t, crm.creates, 1)
	props := crm.creates[0].Props
	assert.Equal(t, "Acme", props.Company)
	assert.Equal(t, "jane@acme.test", props.Email)
	assert.Equal(t, "Jane", props.FirstName)
	assert.Equal(t, "Doe", props.LastName)
	assert.Equal(t, "555-0100", props.Phone)
	assert.Equal(t, "lead", props.LifecycleStage)
}

func TestUpload_ExistingCompanySkipsCreate(t *testing.T) {
	crm := &mockCRM{companyID: "company-9"}
	svc := NewUpsertService(crm, defaultOptions())

	out := svc.Upload(context.Background(), fullRecord(), "token")

	assert.Equal(t, model.OutcomeCreated, out.Outcome)
	assert.Empty(t, crm.companyCreates, "an existing company must not be recreated")
	require.Len(t, crm.associations, 1)
	assert.Equal(t, "company-9", crm.associations[0].CompanyID)
}

func TestUpload_AssociationFailureDoesNotFailRecord(t *testing.T) {
	crm := &mockCRM{
		companyID:    "company-9",
		associateErr: &driven.RemoteError{StatusCode: 500, Body: "oops"},
	}
	svc := NewUpsertService(crm, defaultOptions())

	out := svc.Upload(context.Background(), fullRecord(), "token")

	assert.Equal(t, model.OutcomeCreated, out.Outcome, "the created contact stands even when association fails")
	assert.Equal(t, "created; company association failed", out.Detail)
}

func TestUpload_CompanyResolutionFailuresSkipAssociation(t *testing.T) {
	t.Run("search and create both fail", func(t *testing.T) {
		crm := &mockCRM{
			companySearchErr: &driven.RemoteError{StatusCode: 500, Body: "down"},
			companyCreateErr: &driven.RemoteError{StatusCode: 500, Body: "down"},
		}
		svc := NewUpsertService(crm, defaultOptions())

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome, "company problems must not block the contact create")
		assert.Empty(t, crm.associations)
		require.Len(t, crm.creates, 1)
		assert.Equal(t, "Acme", crm.creates[0].Props.Company, "the company property is attached regardless")
	})

	t.Run("search fails but create recovers", func(t *testing.T) {
		crm := &mockCRM{
			companySearchErr: &driven.RemoteError{StatusCode: 500, Body: "down"},
			createdCompanyID: "company-7",
		}
		svc := NewUpsertService(crm, defaultOptions())

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome)
		require.Len(t, crm.associations, 1)
		assert.Equal(t, "company-7", crm.associations[0].CompanyID)
	})
}

func TestUpload_DedupeFailurePolicy(t *testing.T) {
	t.Run("fail open by default", func(t *testing.T) {
		crm := &mockCRM{searchErr: &driven.RemoteError{StatusCode: 429, Body: "rate limited"}}
		svc := NewUpsertService(crm, defaultOptions())

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome, "a failed search proceeds as not-found")
		assert.Len(t, crm.creates, 1)
	})

	t.Run("strict dedupe fails closed", func(t *testing.T) {
		crm := &mockCRM{searchErr: &driven.RemoteError{StatusCode: 429, Body: "rate limited"}}
		opts := defaultOptions()
		opts.StrictDedupe = true
		svc := NewUpsertService(crm, opts)

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeFailed, out.Outcome)
		assert.Equal(t, "dedupe check failed", out.Detail)
		assert.Empty(t, crm.creates)
	})
}

func TestUpload_CreateFailure(t *testing.T) {
	crm := &mockCRM{createErr: &driven.RemoteError{StatusCode: 400, Body: "bad property"}}
	svc := NewUpsertService(crm, defaultOptions())

	out := svc.Upload(context.Background(), fullRecord(), "token")

	assert.Equal(t, model.OutcomeFailed, out.Outcome)
	assert.Equal(t, "contact create failed", out.Detail)
	assert.Empty(t, crm.associations)
}

func TestUpload_Toggles(t *testing.T) {
	t.Run("dedupe off skips search", func(t *testing.T) {
		crm := &mockCRM{contactExists: true}
		svc := NewUpsertService(crm, UpsertOptions{CompanyLink: true})

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome)
		assert.Empty(t, crm.searches, "dedupe disabled means no existence check")
	})

	t.Run("company link off skips resolution", func(t *testing.T) {
		crm := &mockCRM{}
		svc := NewUpsertService(crm, UpsertOptions{Dedupe: true})

		out := svc.Upload(context.Background(), fullRecord(), "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome)
		assert.Empty(t, crm.companySearches)
		assert.Empty(t, crm.associations)
		require.Len(t, crm.creates, 1)
		assert.Equal(t, "Acme", crm.creates[0].Props.Company, "the property mapping is independent of linking")
	})

	t.Run("no company name skips resolution", func(t *testing.T) {
		crm := &mockCRM{}
		svc := NewUpsertService(crm, defaultOptions())

		rec := fullRecord()
		delete(rec, model.FieldCompany)
		out := svc.Upload(context.Background(), rec, "token")

		assert.Equal(t, model.OutcomeCreated, out.Outcome)
		assert.Empty(t, crm.companySearches)
	})
}

func TestUpload_CanceledContextFailsRecord(t *testing.T) {
	crm := &mockCRM{}
	// A real limiter rate makes Wait respect context cancellation.
	svc := NewUpsertService(crm, UpsertOptions{RequestsPerSecond: 0.001, Dedupe: false})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := svc.Upload(ctx, fullRecord(), "token")

	assert.Equal(t, model.OutcomeFailed, out.Outcome)
	assert.Equal(t, "canceled while waiting on rate limit", out.Detail)
	assert.Empty(t, crm.creates)
}
