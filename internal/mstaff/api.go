// Package mstaff holds staff profiles, attendance punches and the role/menu lookup the
// front end renders its navigation from.
package mstaff

import "github.com/gin-gonic/gin"

// Register mounts the staff routes. /role and /menu are UI hints only; access control is
// the route groups' job.
func (h *Handler) Register(auth, admin gin.IRoutes) {
	auth.GET("/role", h.handleRole)
	auth.GET("/menu", h.handleMenu)
	auth.GET("/me", h.handleMe)
	auth.PUT("/me", h.handleUpdateMe)
	auth.POST("/attendance/punch-in", h.handlePunchIn)
	auth.POST("/attendance/punch-out", h.handlePunchOut)
	auth.GET("/attendance", h.handleAttendance)

	admin.GET("/staff", h.handleListStaff)
	admin.POST("/staff", h.handleCreateStaff)
	admin.GET("/staff/:id", h.handleGetStaff)
	admin.PUT("/staff/:id", h.handleUpdateStaff)
	admin.DELETE("/staff/:id", h.handleDeleteStaff)
}
