package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"babylog/internal/service"
)

// AdminHandler serves the unscoped administrator views
type AdminHandler struct {
	adminService  *service.AdminService
	backupService *service.BackupService
	middleware    *Middleware
	templates     *template.Template
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, backupService *service.BackupService, middleware *Middleware, templates *template.Template) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		backupService: backupService,
		middleware:    middleware,
		templates:     templates,
	}
}

// ShowAdmin lists every user, family, baby and feeding
func (h *AdminHandler) ShowAdmin(w http.ResponseWriter, r *http.Request) {
	overview, err := h.adminService.Overview()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading admin overview", err)
		return
	}

	renderTemplate(w, h.templates, "admin.tmpl", AdminViewData{
		PageData: PageData{
			Title:     "Admin - Babylog",
			User:      GetUserFromContext(r.Context()),
			CSRFToken: h.middleware.GetCSRFToken(r),
		},
		Overview: overview,
	})
}

// ExportDatabase streams a JSON backup of the whole database
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	// Set headers for file download
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("babylog_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// Export directly to response writer
	if _, err := h.backupService.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}

	log.Printf("Database exported by admin user %s", user.Username)
}
