package handler

import "github.com/gin-gonic/gin"

// ================================================
// HANDLER INTERFACES
// ================================================

// NotificationHandler exposes the Client API surface over HTTP.
type NotificationHandler interface {
	Create(c *gin.Context)
	ListNotifications(c *gin.Context)
	GetUnreadCount(c *gin.Context)
	MarkAsRead(c *gin.Context)
	MarkAllAsRead(c *gin.Context)
	Dismiss(c *gin.Context)
	DismissAll(c *gin.Context)
	RunHealthChecks(c *gin.Context)
}

// RealtimeHandler upgrades a client connection onto the Realtime Bus.
type RealtimeHandler interface {
	Subscribe(c *gin.Context)
}
