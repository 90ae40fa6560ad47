// Package mteam manages teams, their journaled membership history and team messages.
package mteam

import "github.com/gin-gonic/gin"

// Register mounts the team routes. Member changes sit on the authenticated group because
// team leaders may make them; the handler checks leadership.
func (h *Handler) Register(auth, admin gin.IRoutes) {
	auth.GET("/my-teams", h.handleMyTeams)
	auth.GET("/teams/:teamid/messages", h.handleListMessages)
	auth.POST("/teams/:teamid/messages", h.handlePostMessage)
	auth.POST("/teams/:teamid/members", h.addTeamMemberHandler)
	auth.DELETE("/teams/:teamid/members/:staffid", h.removeTeamMemberHandler)

	admin.GET("/teams", h.getHandler)
	admin.POST("/teams", h.createHandler)
	admin.PUT("/teams/:teamid", h.updateHandler)
	admin.DELETE("/teams/:teamid", h.deleteHandler)
	admin.GET("/teams/:teamid/history", h.historyHandler)
}
