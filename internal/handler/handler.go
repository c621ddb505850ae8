package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tinbox/internal/guard"
	"tinbox/internal/query"
	"tinbox/internal/service"
	"tinbox/internal/sheet"
	"tinbox/internal/store"
	"tinbox/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the donation endpoints.
type Handler struct {
	donations   *service.DonationService
	exportSheet string
	log         logrus.FieldLogger
}

func NewHandler(donations *service.DonationService, exportSheet string, log logrus.FieldLogger) *Handler {
	return &Handler{
		donations:   donations,
		exportSheet: exportSheet,
		log:         log.WithField("module", "handler"),
	}
}

// DonationRequest is the add/edit form plus the shared password.
type DonationRequest struct {
	service.Form
	Password string `json:"password"`
}

type ConfirmDeleteRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password"`
}

type CancelDeleteRequest struct {
	Token string `json:"token" binding:"required"`
}

// ListDonations returns the filtered view.
// GET /api/v1/donations?search=&status=&sort=
func (h *Handler) ListDonations(c *gin.Context) {
	params, ok := h.viewParams(c)
	if !ok {
		return
	}

	view, err := h.donations.View(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, view)
}

// GetDonation returns a record and the form pre-filled with it.
// GET /api/v1/donations/:id
func (h *Handler) GetDonation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	record, err := h.donations.SelectForEdit(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, gin.H{
		"record": record,
		"form":   service.FormFromRecord(record),
	})
}

// CreateDonation adds a record.
// POST /api/v1/donations
func (h *Handler) CreateDonation(c *gin.Context) {
	params, ok := h.viewParams(c)
	if !ok {
		return
	}
	var req DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.donations.Add(c.Request.Context(), service.AddRequest{
		Form:     req.Form,
		Password: req.Password,
		View:     params,
	})
	if err != nil {
		h.writeError(c, err, &req.Form)
		return
	}
	response.Success(c, res)
}

// UpdateDonation replaces all editable fields of one record.
// PUT /api/v1/donations/:id
func (h *Handler) UpdateDonation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	params, ok := h.viewParams(c)
	if !ok {
		return
	}
	var req DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.donations.Update(c.Request.Context(), service.UpdateRequest{
		ID:       id,
		Form:     req.Form,
		Password: req.Password,
		View:     params,
	})
	if err != nil {
		h.writeError(c, err, &req.Form)
		return
	}
	response.Success(c, res)
}

// RequestDelete issues a confirmation token. Nothing is deleted yet.
// POST /api/v1/donations/:id/delete
func (h *Handler) RequestDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	conf, err := h.donations.RequestDelete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, conf)
}

// ConfirmDelete deletes the record behind a confirmation token.
// POST /api/v1/donations/delete/confirm
func (h *Handler) ConfirmDelete(c *gin.Context) {
	params, ok := h.viewParams(c)
	if !ok {
		return
	}
	var req ConfirmDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.donations.ConfirmDelete(c.Request.Context(), service.ConfirmDeleteRequest{
		Token:    req.Token,
		Password: req.Password,
		View:     params,
	})
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, res)
}

// CancelDelete drops a confirmation token.
// POST /api/v1/donations/delete/cancel
func (h *Handler) CancelDelete(c *gin.Context) {
	params, ok := h.viewParams(c)
	if !ok {
		return
	}
	var req CancelDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.donations.CancelDelete(c.Request.Context(), req.Token, params)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, view)
}

// ExportDonations downloads the current view as a workbook.
// GET /api/v1/donations/export?search=&status=&sort=
func (h *Handler) ExportDonations(c *gin.Context) {
	params, ok := h.viewParams(c)
	if !ok {
		return
	}

	view, err := h.donations.View(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	var buf bytes.Buffer
	if err := sheet.WriteWorkbook(&buf, h.exportSheet, view.Records); err != nil {
		h.log.WithError(err).Error("export workbook failed")
		response.ServerError(c, err.Error())
		return
	}

	filename := fmt.Sprintf("donations_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) viewParams(c *gin.Context) (query.Params, bool) {
	status, err := query.ParseStatusFilter(c.Query("status"))
	if err != nil {
		response.ParamError(c, err.Error())
		return query.Params{}, false
	}
	order, err := query.ParseSortOrder(c.Query("sort"))
	if err != nil {
		response.ParamError(c, err.Error())
		return query.Params{}, false
	}
	return query.Params{Search: c.Query("search"), Status: status, Sort: order}, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid donation id")
		return 0, false
	}
	return id, true
}

// writeError maps service errors to response codes. form, when set, is
// echoed back on validation and authorization failures.
func (h *Handler) writeError(c *gin.Context, err error, form *service.Form) {
	var verr *service.ValidationError
	var serr *service.StorageError

	switch {
	case errors.As(err, &verr):
		response.ErrorWithData(c, response.CodeParamError, err.Error(), gin.H{
			"form":   form,
			"fields": verr.Fields,
		})
	case errors.Is(err, guard.ErrIncorrectPassword):
		if form != nil {
			response.ErrorWithData(c, response.CodeUnauthorized, err.Error(), gin.H{"form": form})
			return
		}
		response.Unauthorized(c, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrConfirmationNotFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &serr):
		response.ServerError(c, err.Error())
	default:
		h.log.WithError(err).Error("unexpected error")
		response.ServerError(c, err.Error())
	}
}
