package lifecycle

import (
	"net/http"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

// Handler exposes the trash ledger to admins.
type Handler struct {
	db database.DB
}

func NewHandler(db database.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Register(admin gin.IRoutes) {
	admin.GET("/trash", h.handleList)
	admin.POST("/trash/:id/restore", h.handleRestore)
}

func (h *Handler) handleList(c *gin.Context) {
	entity := Entity(c.Query("entity"))
	if entity != "" {
		if _, ok := entity.Table(); !ok {
			apperr.Respond(c, apperr.Validation("unknown entity type "+string(entity)))
			return
		}
	}

	limit, err := utils.ParseQueryInt(c.Query("limit"), 50)
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit must be a number"))
		return
	}
	items, err := ListTrash(c.Request.Context(), h.db, entity, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) handleRestore(c *gin.Context) {
	actor, ok := authmw.StaffID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.Validation("trash id required"))
		return
	}

	if err := Restore(c.Request.Context(), h.db, id, actor); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
