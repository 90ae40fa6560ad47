// Package mleave handles leave and WFH requests: approval, yearly accounting against
// allocations, holidays and the month calendar.
package mleave

import "github.com/gin-gonic/gin"

// Register mounts the leave routes on the staff+admin group and the admin-only group.
func (h *Handler) Register(auth, admin gin.IRoutes) {
	auth.POST("/leaves", h.handleCreateLeave)
	auth.GET("/leaves", h.handleListMine)
	auth.PUT("/leaves/:id", h.handleUpdateLeave)
	auth.DELETE("/leaves/:id", h.handleDeleteLeave)
	auth.GET("/leaves/summary", h.handleSummary)
	auth.GET("/calendar", h.handleCalendar)
	auth.GET("/holidays", h.handleListHolidays)

	admin.GET("/leaves", h.handleListAll)
	admin.POST("/leaves/:id/decision", h.handleDecide)
	admin.GET("/leaves/summaries", h.handleAllSummaries)
	admin.PUT("/leaves/allocations", h.handleSetAllocation)
	admin.POST("/leave-records/recompute", h.handleRecompute)
	admin.POST("/holidays", h.handleCreateHoliday)
	admin.PUT("/holidays/:id", h.handleUpdateHoliday)
	admin.DELETE("/holidays/:id", h.handleDeleteHoliday)
}
