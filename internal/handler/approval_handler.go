package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/service"
	"github.com/gofiber/fiber/v2"
)

const maxDaysToApprove = 365

type ApprovalService interface {
	ApproveBatch(ctx context.Context, caller domain.Caller, batchID string) (*service.ApprovalResult, error)
	ApproveFutureBatches(ctx context.Context, caller domain.Caller, batchID string, days int) (*service.FutureApprovalResult, error)
}

type ApprovalHandler struct {
	service ApprovalService
	timeout time.Duration
}

func NewApprovalHandler(service ApprovalService, timeout time.Duration) (*ApprovalHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("approval service is required")
	}
	return &ApprovalHandler{service: service, timeout: timeout}, nil
}

// RegisterApprovalRoutes mounts the approval endpoints. router is expected to
// run RequireCaller.
func RegisterApprovalRoutes(router fiber.Router, service ApprovalService, timeout time.Duration) error {
	h, err := NewApprovalHandler(service, timeout)
	if err != nil {
		return err
	}

	router.Post("/batches/approve", h.ApproveBatch)
	router.Post("/batches/approve-future", h.ApproveFutureBatches)
	return nil
}

type approveBatchRequest struct {
	BatchID string `json:"batch_id"`
}

type approveFutureRequest struct {
	BatchID       string `json:"batch_id"`
	DaysToApprove *int   `json:"days_to_approve"`
}

type approveBatchResponse struct {
	Success         bool   `json:"success"`
	BatchID         string `json:"batch_id"`
	MessagesCreated int    `json:"messages_created"`
	RecipientsCount int    `json:"recipients_count"`
	DispatchedCount int    `json:"dispatched_count"`
	ScheduledCount  int    `json:"scheduled_count"`
	FailedCount     int    `json:"failed_count"`
	SkippedCount    int    `json:"skipped_count"`
}

type expiredBatchResponse struct {
	Success bool   `json:"success"`
	Expired bool   `json:"expired"`
	BatchID string `json:"batch_id"`
	Error   string `json:"error"`
}

type approveFutureResponse struct {
	Success        bool                 `json:"success"`
	ApprovedCount  int                  `json:"approved_count"`
	TotalAttempted int                  `json:"total_attempted"`
	Errors         []service.BatchError `json:"errors"`
	DaysWindow     int                  `json:"days_window"`
}

func (h *ApprovalHandler) ApproveBatch(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req approveBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.service.ApproveBatch(ctx, caller, req.BatchID)
	if errors.Is(err, domain.ErrBatchExpired) {
		batchID := req.BatchID
		if result != nil {
			batchID = result.BatchID
		}
		return c.Status(fiber.StatusBadRequest).JSON(expiredBatchResponse{
			Success: false,
			Expired: true,
			BatchID: batchID,
			Error:   "batch run window has passed",
		})
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(approveBatchResponse{
		Success:         true,
		BatchID:         result.BatchID,
		MessagesCreated: result.MessagesCreated,
		RecipientsCount: result.RecipientsCount,
		DispatchedCount: result.DispatchedCount,
		ScheduledCount:  result.ScheduledCount,
		FailedCount:     result.FailedCount,
		SkippedCount:    result.SkippedCount,
	})
}

func (h *ApprovalHandler) ApproveFutureBatches(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req approveFutureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.DaysToApprove == nil {
		return fmt.Errorf("%w: days_to_approve is required", domain.ErrValidation)
	}
	if *req.DaysToApprove < 0 || *req.DaysToApprove > maxDaysToApprove {
		return fmt.Errorf("%w: days_to_approve must be between 0 and %d", domain.ErrValidation, maxDaysToApprove)
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.service.ApproveFutureBatches(ctx, caller, req.BatchID, *req.DaysToApprove)
	if err != nil {
		return err
	}

	errs := result.Errors
	if errs == nil {
		errs = []service.BatchError{}
	}
	return c.Status(fiber.StatusOK).JSON(approveFutureResponse{
		Success:        true,
		ApprovedCount:  result.ApprovedCount,
		TotalAttempted: result.TotalAttempted,
		Errors:         errs,
		DaysWindow:     result.DaysWindow,
	})
}
