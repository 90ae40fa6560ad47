// Package mcrm covers the customer side: companies, contacts, leads and their conversion
// into tasks, work assignments, calls, meetings and document attachments.
package mcrm

import "github.com/gin-gonic/gin"

func (h *Handler) Register(auth, admin gin.IRoutes) {
	auth.GET("/companies", h.handleListCompanies)
	auth.POST("/companies", h.handleCreateCompany)
	auth.GET("/companies/:id", h.handleGetCompany)
	auth.PUT("/companies/:id", h.handleUpdateCompany)
	admin.DELETE("/companies/:id", h.handleDeleteCompany)

	auth.GET("/contacts", h.handleListContacts)
	auth.POST("/contacts", h.handleCreateContact)
	auth.GET("/contacts/:id", h.handleGetContact)
	auth.PUT("/contacts/:id", h.handleUpdateContact)
	auth.DELETE("/contacts/:id", h.handleDeleteContact)

	auth.GET("/leads", h.handleListLeads)
	auth.GET("/leads/:id", h.handleGetLead)
	auth.PUT("/leads/:id", h.handleUpdateLead)
	admin.POST("/leads", h.handleCreateLead)
	admin.DELETE("/leads/:id", h.handleDeleteLead)
	admin.POST("/leads/:id/convert", h.handleConvertLead)

	auth.GET("/work", h.handleListMyWork)
	auth.GET("/work/:id", h.handleGetWork)
	auth.PATCH("/work/:id/status", h.handleWorkStatus)
	admin.GET("/work", h.handleListAllWork)
	admin.POST("/work", h.handleCreateWork)
	admin.PUT("/work/:id", h.handleUpdateWork)
	admin.DELETE("/work/:id", h.handleDeleteWork)

	auth.GET("/calls", h.handleListCalls)
	auth.POST("/calls", h.handleCreateCall)
	auth.PUT("/calls/:id", h.handleUpdateCall)
	auth.DELETE("/calls/:id", h.handleDeleteCall)

	auth.GET("/meetings", h.handleListMeetings)
	auth.POST("/meetings", h.handleCreateMeeting)
	auth.PUT("/meetings/:id", h.handleUpdateMeeting)
	auth.DELETE("/meetings/:id", h.handleDeleteMeeting)

	auth.POST("/documents", h.handleCreateDocument)
	auth.GET("/documents", h.handleListDocuments)
	auth.GET("/documents/:id/download", h.handleDownloadDocument)
	auth.DELETE("/documents/:id", h.handleDeleteDocument)
}
