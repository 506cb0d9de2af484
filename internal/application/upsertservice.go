package application

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// UpsertOptions configures the per-record pipeline. Dedupe, company linking,
// and rate limiting are independently toggleable.
type UpsertOptions struct {
	// RequestsPerSecond caps contact-create calls. Zero or negative disables
	// the limiter (used by tests to avoid real delays).
	RequestsPerSecond float64
	// Dedupe enables the email existence check before create.
	Dedupe bool
	// CompanyLink enables company resolution and association.
	CompanyLink bool
	// StrictDedupe fails the record when the dedupe search errors, instead of
	// the default fail-open behavior (proceed as "not found").
	StrictDedupe bool
}

// UpsertService runs the per-record create-if-absent pipeline against the
// CRM. No error ever escapes Upload; every failure is converted to a
// per-record outcome so one bad record cannot abort a run.
type UpsertService struct {
	crm     driven.CRMClient
	limiter *rate.Limiter
	opts    UpsertOptions
}

// NewUpsertService creates an UpsertService with the given policy.
func NewUpsertService(crm driven.CRMClient, opts UpsertOptions) *UpsertService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &UpsertService{crm: crm, limiter: limiter, opts: opts}
}

// Upload processes one record: skip without email, dedupe by email, resolve
// (and lazily create) the referenced company, wait out the rate limiter,
// create the contact, then associate it with the company. Company resolution
// and association failures never fail the record; the company name is always
// attached as a plain contact property regardless.
func (s *UpsertService) Upload(ctx context.Context, rec model.ContactRecord, token string) model.RecordOutcome {
	out := model.RecordOutcome{
		Email:     rec.Email(),
		FirstName: rec[model.FieldFirstName],
		LastName:  rec[model.FieldLastName],
	}

	email := rec.Email()
	if email == "" {
		out.Outcome = model.OutcomeSkippedNoEmail
		out.Detail = "record has no email"
		return out
	}

	if s.opts.Dedupe {
		exists, err := s.crm.SearchContactByEmail(ctx, email, token)
		if err != nil {
			logRemoteError("contact search failed", err, "email", email)
			if s.opts.StrictDedupe {
				out.Outcome = model.OutcomeFailed
				out.Detail = "dedupe check failed"
				return out
			}
			// Fail open: proceed as if not found so the upload can complete.
			exists = false
		}
		if exists {
			out.Outcome = model.OutcomeSkippedDuplicate
			out.Detail = "contact already exists"
			return out
		}
	}

	var companyID string
	if s.opts.CompanyLink && rec.Company() != "" {
		companyID = s.resolveCompany(ctx, rec.Company(), token)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		out.Outcome = model.OutcomeFailed
		out.Detail = "canceled while waiting on rate limit"
		return out
	}

	contact, err := s.crm.CreateContact(ctx, model.PropertiesFromRecord(rec), token)
	if err != nil {
		logRemoteError("contact create failed", err, "email", email)
		out.Outcome = model.OutcomeFailed
		out.Detail = "contact create failed"
		return out
	}

	out.Outcome = model.OutcomeCreated
	out.ContactID = contact.ID
	slog.Info("contact created", "email", email, "contact_id", contact.ID)

	if companyID != "" {
		if err := s.crm.AssociateContactWithCompany(ctx, contact.ID, companyID, token); err != nil {
			// Non-fatal: the created contact stands.
			logRemoteError("company association failed", err,
				"contact_id", contact.ID, "company_id", companyID)
			out.Detail = "created; company association failed"
		}
	}
	return out
}

// resolveCompany looks up the company by name and lazily creates it when
// absent. Both steps fail open to "" (no association) so company problems
// never block the contact create.
func (s *UpsertService) resolveCompany(ctx context.Context, name, token string) string {
	id, err := s.crm.SearchCompanyByName(ctx, name, token)
	if err != nil {
		logRemoteError("company search failed", err, "company", name)
		id = ""
	}
	if id != "" {
		return id
	}

	id, err = s.crm.CreateCompany(ctx, name, token)
	if err != nil {
		logRemoteError("company create failed", err, "company", name)
		return ""
	}
	slog.Info("company created", "company", name, "company_id", id)
	return id
}

// logRemoteError logs a remote-call failure with status code and response
// body when the remote responded, else the error message.
func logRemoteError(msg string, err error, args ...any) {
	var re *driven.RemoteError
	if errors.As(err, &re) {
		args = append(args, "status", re.StatusCode, "body", re.Body)
	} else {
		args = append(args, "error", err)
	}
	slog.Error(msg, args...)
}
