package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"babylog/internal/models"
	"babylog/internal/service"
	"babylog/internal/validation"
)

// FamilyHandler handles families, babies, recipes and join codes
type FamilyHandler struct {
	familyService *service.FamilyService
	emailService  *service.EmailService
	middleware    *Middleware
	templates     *template.Template
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, emailService *service.EmailService, middleware *Middleware, templates *template.Template) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		emailService:  emailService,
		middleware:    middleware,
		templates:     templates,
	}
}

func (h *FamilyHandler) formData(r *http.Request, title string, activeID *int64, values map[string]string) (*FormViewData, error) {
	user := GetUserFromContext(r.Context())

	families, active, err := h.familyService.ResolveActiveFamily(user.ID, activeID)
	if err != nil {
		return nil, err
	}
	familyData, err := h.familyService.GetFamilyData(active, false, true)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}

	return &FormViewData{
		PageData: PageData{
			Title:     title + " - Babylog",
			User:      user,
			CSRFToken: h.middleware.GetCSRFToken(r),
		},
		FamilyScope: FamilyScope{Families: families, ActiveFamily: active},
		Recipes:     familyData.Recipes,
		Values:      values,
	}, nil
}

func (h *FamilyHandler) showForm(w http.ResponseWriter, r *http.Request, name, title string) {
	data, err := h.formData(r, title, requestedFamilyID(r), nil)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading form", err)
		return
	}
	renderTemplate(w, h.templates, name, data)
}

func (h *FamilyHandler) renderFormError(w http.ResponseWriter, r *http.Request, name, title string, values map[string]string, msg, field string) {
	var activeID *int64
	if id, err := parseOptionalID("family_id", values["family_id"]); err == nil {
		activeID = id
	}

	data, err := h.formData(r, title, activeID, values)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading form", err)
		return
	}
	data.Error, data.Field = msg, field
	renderTemplate(w, h.templates, name, data)
}

func redirectToFamily(w http.ResponseWriter, r *http.Request, familyID int64) {
	user := GetUserFromContext(r.Context())
	http.Redirect(w, r, fmt.Sprintf("/user/%s?family_id=%d", user.Username, familyID), http.StatusSeeOther)
}

// ShowAddBaby renders the add baby form
func (h *FamilyHandler) ShowAddBaby(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_baby.tmpl", "Add baby")
}

// AddBaby adds a baby to one of the user's families
func (h *FamilyHandler) AddBaby(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	user := GetUserFromContext(r.Context())
	values := formValues(r, "family_id", "name", "date_of_birth")

	familyID, err := parseRequiredID("family_id", values["family_id"])
	if err == nil {
		var dob *time.Time
		if dob, err = parseOptionalDate("date_of_birth", values["date_of_birth"]); err == nil {
			_, err = h.familyService.AddBaby(user.ID, familyID, values["name"], dob)
		}
	}
	if err != nil {
		if msg, field, ok := validationMessage(err); ok {
			h.renderFormError(w, r, "add_baby.tmpl", "Add baby", values, msg, field)
			return
		}
		respondWithServiceError(w, "Error adding baby", err)
		return
	}

	redirectToFamily(w, r, familyID)
}

// ShowAddRecipe renders the add recipe form
func (h *FamilyHandler) ShowAddRecipe(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_recipe.tmpl", "Add recipe")
}

// AddRecipe stores a recipe for one of the user's families
func (h *FamilyHandler) AddRecipe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	user := GetUserFromContext(r.Context())
	values := formValues(r, "family_id", "name", "ingredients", "instructions", "amount")

	recipe := &models.Recipe{
		Name:         values["name"],
		Ingredients:  values["ingredients"],
		Instructions: values["instructions"],
	}
	var err error
	if recipe.FamilyID, err = parseRequiredID("family_id", values["family_id"]); err == nil {
		if recipe.Amount, err = parseOptionalInt("amount", values["amount"]); err == nil {
			err = h.familyService.AddRecipe(user.ID, recipe)
		}
	}
	if err != nil {
		if msg, field, ok := validationMessage(err); ok {
			h.renderFormError(w, r, "add_recipe.tmpl", "Add recipe", values, msg, field)
			return
		}
		respondWithServiceError(w, "Error adding recipe", err)
		return
	}

	redirectToFamily(w, r, recipe.FamilyID)
}

// ShowAddFamily renders the create family form
func (h *FamilyHandler) ShowAddFamily(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_family.tmpl", "New family")
}

// AddFamily creates a family with a fresh join code for the current user
func (h *FamilyHandler) AddFamily(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	user := GetUserFromContext(r.Context())
	values := formValues(r, "name")

	family, err := h.familyService.CreateFamily(user.ID, values["name"])
	if err != nil {
		if msg, field, ok := validationMessage(err); ok {
			h.renderFormError(w, r, "add_family.tmpl", "New family", values, msg, field)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error creating family", err)
		return
	}

	redirectToFamily(w, r, family.ID)
}

// ShowJoinFamily renders the join family form
func (h *FamilyHandler) ShowJoinFamily(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "join_family.tmpl", "Join family")
}

// JoinFamily adds the current user to the family holding the submitted code
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	user := GetUserFromContext(r.Context())
	values := formValues(r, "code")

	family, err := h.familyService.JoinFamilyByCode(user.ID, values["code"])
	switch {
	case errors.Is(err, service.ErrInvalidFamilyCode):
		h.renderFormError(w, r, "join_family.tmpl", "Join family", values, "No family uses that code", "code")
		return
	case errors.Is(err, service.ErrAlreadyMember):
		h.renderFormError(w, r, "join_family.tmpl", "Join family", values, "You are already a member of that family", "code")
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error joining family", err)
		return
	}

	redirectToFamily(w, r, family.ID)
}

// ShareCode e-mails the join code of one of the user's families
func (h *FamilyHandler) ShareCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	user := GetUserFromContext(r.Context())

	familyID, err := parseRequiredID("family_id", r.FormValue("family_id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if err := validation.ValidateEmail(email); err != nil {
		msg, _, _ := validationMessage(err)
		respondWithError(w, http.StatusBadRequest, msg, "", nil)
		return
	}

	family, err := h.familyService.GetFamilyForUser(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, "Error loading family", err)
		return
	}

	if !h.emailService.IsEnabled() {
		respondWithError(w, http.StatusServiceUnavailable, "Email is not configured on this server", "", nil)
		return
	}
	if err := h.emailService.SendFamilyCodeEmail(r.Context(), email, user.Username, family.Name, family.Code); err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to send email", "Error sending family code", err)
		return
	}
	log.Printf("Family %d code shared by %s", family.ID, user.Username)

	redirectToFamily(w, r, family.ID)
}
