package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
	"github.com/KurisuuChan/medcore/internal/shared/response"
)

// ================================================
// NOTIFICATION HANDLER
// ================================================
// HTTP handlers for the notification domain, wired against the Dispatcher
// port instead of a CRUD notification service.

type notificationHandler struct {
	dispatcher service.Dispatcher
	scanner    service.Scanner
}

func NewNotificationHandler(dispatcher service.Dispatcher, scanner service.Scanner) NotificationHandler {
	return &notificationHandler{dispatcher: dispatcher, scanner: scanner}
}

// ================================================
// CREATE
// POST /api/v1/notifications
// ================================================

func (h *notificationHandler) Create(c *gin.Context) {
	var params model.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	n, err := h.dispatcher.Create(c.Request.Context(), params)
	if err != nil {
		writeDispatchError(c, "create notification", err)
		return
	}
	if n == nil {
		// Suppressed by the cooldown: a duplicate within the dedupe window
		// is a valid, silent no-op, not an error.
		c.Status(http.StatusNoContent)
		return
	}

	response.Success(c, http.StatusCreated, model.ToResponse(*n))
}

// ================================================
// LIST NOTIFICATIONS
// GET /api/v1/notifications
// ================================================

func (h *notificationHandler) ListNotifications(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := model.ListFilter{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: c.Query("unread_only") == "true",
		Category:   c.Query("category"),
	}

	result, err := h.dispatcher.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		writeDispatchError(c, "list notifications", err)
		return
	}

	rows := make([]model.NotificationResponse, len(result.Rows))
	for i, n := range result.Rows {
		rows[i] = model.ToResponse(n)
	}

	response.Success(c, http.StatusOK, model.NotificationListResponse{
		Notifications: rows,
		TotalCount:    result.TotalCount,
		HasMore:       result.HasMore,
	})
}

// ================================================
// GET UNREAD COUNT
// GET /api/v1/notifications/unread-count
// ================================================

func (h *notificationHandler) GetUnreadCount(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	count, err := h.dispatcher.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeDispatchError(c, "get unread count", err)
		return
	}

	response.Success(c, http.StatusOK, model.UnreadCountResponse{Count: count})
}

// ================================================
// MARK AS READ
// POST /api/v1/notifications/:id/read
// ================================================

func (h *notificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	n, err := h.dispatcher.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		writeDispatchError(c, "mark as read", err)
		return
	}

	response.Success(c, http.StatusOK, model.ToResponse(*n))
}

// ================================================
// MARK ALL AS READ
// POST /api/v1/notifications/mark-all-read
// ================================================

func (h *notificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	count, err := h.dispatcher.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		writeDispatchError(c, "mark all as read", err)
		return
	}

	response.Success(c, http.StatusOK, map[string]interface{}{"count": count})
}

// ================================================
// DISMISS
// DELETE /api/v1/notifications/:id
// ================================================

func (h *notificationHandler) Dismiss(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	n, err := h.dispatcher.Dismiss(c.Request.Context(), id, userID)
	if err != nil {
		writeDispatchError(c, "dismiss notification", err)
		return
	}

	response.Success(c, http.StatusOK, model.ToResponse(*n))
}

// ================================================
// DISMISS ALL
// DELETE /api/v1/notifications
// ================================================

func (h *notificationHandler) DismissAll(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	count, err := h.dispatcher.DismissAll(c.Request.Context(), userID)
	if err != nil {
		writeDispatchError(c, "dismiss all notifications", err)
		return
	}

	response.Success(c, http.StatusOK, map[string]interface{}{"count": count})
}

// ================================================
// RUN HEALTH CHECKS
// POST /api/v1/notifications/scan
// ================================================

func (h *notificationHandler) RunHealthChecks(c *gin.Context) {
	force := c.Query("force") == "true"
	result := h.scanner.RunHealthChecks(c.Request.Context(), force)
	response.Success(c, http.StatusOK, result)
}

// ================================================
// HELPER FUNCTIONS
// ================================================

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	userIDInterface, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, fmt.Errorf("userID not found in context")
	}

	if userIDStr, ok := userIDInterface.(string); ok {
		return uuid.Parse(userIDStr)
	}

	if userID, ok := userIDInterface.(uuid.UUID); ok {
		return userID, nil
	}

	return uuid.Nil, fmt.Errorf("invalid user_id type in context")
}

func writeDispatchError(c *gin.Context, action string, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(c, validationErr.Error())
	case errors.Is(err, model.ErrNotFound):
		response.NotFound(c, "notification not found")
	default:
		log.Error().Err(err).Str("action", action).Msg("notification handler: request failed")
		response.InternalServerError(c, "failed to "+action)
	}
}
