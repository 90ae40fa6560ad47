// Package mtask serves tasks: the stage state machine, rework flags, team-work log and
// the per-role subtask checklists.
package mtask

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the task routes. auth is the staff+admin group, admin the admin-only one.
func (h *Handler) Register(auth, admin gin.IRoutes) {
	auth.GET("/tasks", h.handleListTasks)
	auth.GET("/tasks/:id", h.handleGetTask)
	auth.PUT("/tasks/stage", h.handleStageNotes)
	auth.PATCH("/tasks/:id/stage", h.handleToggleStage)
	auth.POST("/tasks/:id/rework/complete", h.handleCompleteRework)
	auth.POST("/tasks/:id/team-work", h.handleAppendTeamWork)

	auth.GET("/tasks/:id/subtasks/:role", h.handleGetChecklist)
	auth.POST("/tasks/:id/subtasks/:role/items", h.checklistMutation((*Checklist).Add))
	auth.POST("/tasks/:id/subtasks/:role/check", h.checklistMutation((*Checklist).Check))
	auth.POST("/tasks/:id/subtasks/:role/uncheck", h.checklistMutation((*Checklist).Uncheck))

	admin.POST("/tasks", h.handleCreateTask)
	admin.PUT("/tasks/:id", h.handleUpdateTask)
	admin.POST("/tasks/:id/rework", h.handleFlagRework)
	admin.POST("/tasks/:id/acknowledge", h.handleAcknowledge)
	admin.DELETE("/tasks/:id", h.handleDeleteTask)
}
