package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"tinbox/internal/guard"
	"tinbox/internal/model"
	"tinbox/internal/pending"
	"tinbox/internal/query"
	"tinbox/internal/store"
	"tinbox/pkg/idgen"
)

// DonationService drives the add, edit and delete flows. Nothing is cached:
// every view is read fresh from the store.
type DonationService struct {
	store   store.RecordStore
	guard   *guard.Guard
	pending pending.Store
	ttl     time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewDonationService(st store.RecordStore, g *guard.Guard, p pending.Store, ttl time.Duration, log logrus.FieldLogger) *DonationService {
	return &DonationService{
		store:   st,
		guard:   g,
		pending: p,
		ttl:     ttl,
		log:     log.WithField("module", "donation_service"),
		now:     time.Now,
	}
}

// View is the filtered list shown to the operator.
type View struct {
	Params  query.Params     `json:"params"`
	Records []model.Donation `json:"records"`
	Total   int              `json:"total"`
	Empty   bool             `json:"empty"`
	Message string           `json:"message,omitempty"`
}

// MutationResult is returned by every successful mutation together with
// the refreshed view. View is nil if the refresh itself failed.
type MutationResult struct {
	Record  *model.Donation `json:"record,omitempty"`
	View    *View           `json:"view,omitempty"`
	Message string          `json:"message"`
}

type AddRequest struct {
	Form     Form
	Password string
	View     query.Params
}

type UpdateRequest struct {
	ID       int64
	Form     Form
	Password string
	View     query.Params
}

type ConfirmDeleteRequest struct {
	Token    string
	Password string
	View     query.Params
}

// DeleteConfirmation is issued by RequestDelete. The record is untouched
// until ConfirmDelete is called with Token.
type DeleteConfirmation struct {
	Token     string          `json:"token"`
	Record    *model.Donation `json:"record"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s *DonationService) View(ctx context.Context, params query.Params) (*View, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	records := query.Apply(all, params)
	view := &View{
		Params:  params,
		Records: records,
		Total:   len(all),
		Empty:   len(records) == 0,
	}
	if view.Empty {
		view.Message = query.NoMatchingData
	}
	return view, nil
}

func (s *DonationService) Add(ctx context.Context, req AddRequest) (*MutationResult, error) {
	fields, err := req.Form.Parse()
	if err != nil {
		return nil, err
	}
	if err := s.authorize("add", req.Password); err != nil {
		return nil, err
	}

	id, err := s.store.Add(ctx, fields)
	if err != nil {
		s.log.WithError(err).Error("add donation failed")
		return nil, &StorageError{Op: "add", Err: err}
	}
	s.log.WithField("donation_id", id).Info("donation added")

	record := model.NewDonation(fields)
	record.ID = id
	return s.result(ctx, record, req.View, "donation saved"), nil
}

// SelectForEdit returns the current values used to pre-fill the edit form.
func (s *DonationService) SelectForEdit(ctx context.Context, id int64) (*model.Donation, error) {
	return s.get(ctx, id)
}

func (s *DonationService) Update(ctx context.Context, req UpdateRequest) (*MutationResult, error) {
	fields, err := req.Form.Parse()
	if err != nil {
		return nil, err
	}
	if err := s.authorize("update", req.Password); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, req.ID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		s.log.WithError(err).WithField("donation_id", req.ID).Error("update donation failed")
		return nil, &StorageError{Op: "update", Err: err}
	}
	s.log.WithField("donation_id", req.ID).Info("donation updated")

	record := model.NewDonation(fields)
	record.ID = req.ID
	return s.result(ctx, record, req.View, "donation updated"), nil
}

// RequestDelete starts the delete flow for id. It never deletes.
func (s *DonationService) RequestDelete(ctx context.Context, id int64) (*DeleteConfirmation, error) {
	record, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c := pending.Confirmation{
		Token:      idgen.GenerateConfirmToken(),
		DonationID: id,
		ExpiresAt:  s.now().Add(s.ttl),
	}
	if err := s.pending.Put(ctx, c); err != nil {
		return nil, &StorageError{Op: "request delete", Err: err}
	}

	return &DeleteConfirmation{Token: c.Token, Record: record, ExpiresAt: c.ExpiresAt}, nil
}

// ConfirmDelete deletes the record behind a pending confirmation. A wrong
// password leaves the confirmation pending so it can be retried.
func (s *DonationService) ConfirmDelete(ctx context.Context, req ConfirmDeleteRequest) (*MutationResult, error) {
	if _, err := s.lookup(ctx, req.Token, s.pending.Get); err != nil {
		return nil, err
	}
	if err := s.authorize("delete", req.Password); err != nil {
		return nil, err
	}

	c, err := s.lookup(ctx, req.Token, s.pending.Take)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, c.DonationID); err != nil {
		s.log.WithError(err).WithField("donation_id", c.DonationID).Error("delete donation failed")
		// keep the confirmation so the operator can retry
		if perr := s.pending.Put(ctx, *c); perr != nil {
			s.log.WithError(perr).Warn("restore delete confirmation failed")
		}
		return nil, &StorageError{Op: "delete", Err: err}
	}
	s.log.WithField("donation_id", c.DonationID).Info("donation deleted")

	return s.result(ctx, nil, req.View, "donation deleted"), nil
}

// CancelDelete abandons a pending delete. Cancelling an unknown or expired
// token is not an error: either way nothing is pending afterwards.
func (s *DonationService) CancelDelete(ctx context.Context, token string, params query.Params) (*View, error) {
	if _, err := s.pending.Drop(ctx, token); err != nil {
		return nil, &StorageError{Op: "cancel delete", Err: err}
	}
	return s.View(ctx, params)
}

func (s *DonationService) authorize(op, password string) error {
	if err := s.guard.Check(password); err != nil {
		s.log.WithField("op", op).Warn("mutation rejected")
		return err
	}
	return nil
}

func (s *DonationService) get(ctx context.Context, id int64) (*model.Donation, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, &StorageError{Op: "get", Err: err}
	}
	return record, nil
}

func (s *DonationService) lookup(ctx context.Context, token string, fn func(context.Context, string) (*pending.Confirmation, error)) (*pending.Confirmation, error) {
	c, err := fn(ctx, token)
	if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			return nil, ErrConfirmationNotFound
		}
		return nil, &StorageError{Op: "read delete confirmation", Err: err}
	}
	return c, nil
}

// result re-reads the list after a mutation so the change is visible at once.
func (s *DonationService) result(ctx context.Context, record *model.Donation, params query.Params, msg string) *MutationResult {
	res := &MutationResult{Record: record, Message: msg}
	view, err := s.View(ctx, params)
	if err != nil {
		s.log.WithError(err).Warn("refresh after mutation failed")
		return res
	}
	res.View = view
	return res
}
