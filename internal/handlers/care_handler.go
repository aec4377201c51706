package handlers

import (
	"fmt"
	"html/template"
	"net/http"

	"babylog/internal/models"
	"babylog/internal/service"
)

// CareHandler serves the home chart, the user dashboard and the event forms
type CareHandler struct {
	authService   *service.AuthService
	familyService *service.FamilyService
	careService   *service.CareService
	middleware    *Middleware
	templates     *template.Template
}

// NewCareHandler creates a new care handler
func NewCareHandler(authService *service.AuthService, familyService *service.FamilyService, careService *service.CareService, middleware *Middleware, templates *template.Template) *CareHandler {
	return &CareHandler{
		authService:   authService,
		familyService: familyService,
		careService:   careService,
		middleware:    middleware,
		templates:     templates,
	}
}

func (h *CareHandler) pageData(r *http.Request, title string) PageData {
	return PageData{
		Title:     title + " - Babylog",
		User:      GetUserFromContext(r.Context()),
		CSRFToken: h.middleware.GetCSRFToken(r),
	}
}

// Home renders the feeding counts of the last week for the active family
func (h *CareHandler) Home(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	families, active, err := h.familyService.ResolveActiveFamily(user.ID, requestedFamilyID(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error resolving families", err)
		return
	}
	familyData, err := h.familyService.GetFamilyData(active, true, false)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading family", err)
		return
	}
	counts, err := h.careService.WeeklyFeedingCounts(familyData.Babies)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error counting feedings", err)
		return
	}

	renderTemplate(w, h.templates, "home.tmpl", HomeViewData{
		PageData:    h.pageData(r, "Home"),
		FamilyScope: FamilyScope{Families: families, ActiveFamily: active},
		Babies:      familyData.Babies,
		Chart:       buildChart(counts),
	})
}

// Dashboard renders /user/{username}. Other users' dashboards only show the
// families shared with the viewer; the active family falls back to the first
// shared one, and nothing shared means 404.
func (h *CareHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	viewer := GetUserFromContext(r.Context())

	owner, err := h.authService.GetUserByUsername(r.PathValue("username"))
	if err != nil {
		respondWithServiceError(w, "Error loading user", err)
		return
	}

	families, active, err := h.familyService.ResolveActiveFamily(owner.ID, requestedFamilyID(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error resolving families", err)
		return
	}

	isOwner := owner.ID == viewer.ID
	if !isOwner {
		viewerFamilies, _, err := h.familyService.ResolveActiveFamily(viewer.ID, nil)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error resolving families", err)
			return
		}
		families = sharedFamilies(families, viewerFamilies)
		if len(families) == 0 {
			respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
			return
		}
		if active == nil || models.FindFamily(families, active.ID) == nil {
			active = &families[0]
		}
	}

	data := DashboardViewData{
		PageData:    h.pageData(r, owner.Username),
		FamilyScope: FamilyScope{Families: families, ActiveFamily: active},
		Owner:       owner,
		IsOwner:     isOwner,
	}

	if active != nil {
		if err := h.loadDashboard(&data, active); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading dashboard", err)
			return
		}
	}

	renderTemplate(w, h.templates, "dashboard.tmpl", data)
}

// sharedFamilies keeps the families of owned that also appear in other,
// in the order of owned
func sharedFamilies(owned, other []models.Family) []models.Family {
	shared := make([]models.Family, 0, len(owned))
	for _, f := range owned {
		if models.FindFamily(other, f.ID) != nil {
			shared = append(shared, f)
		}
	}
	return shared
}

func (h *CareHandler) loadDashboard(data *DashboardViewData, family *models.Family) error {
	familyData, err := h.familyService.GetFamilyData(family, true, true)
	if err != nil {
		return err
	}
	data.Babies = familyData.Babies
	data.Recipes = familyData.Recipes

	if data.Members, err = h.familyService.GetFamilyMembers(family.ID); err != nil {
		return err
	}
	if data.Feedings, err = h.careService.ListFeedings(data.Babies); err != nil {
		return err
	}
	if data.Changings, err = h.careService.ListChangings(data.Babies); err != nil {
		return err
	}
	if data.Sleepings, err = h.careService.ListSleepings(data.Babies); err != nil {
		return err
	}
	if data.Notes, err = h.careService.ListNotes(data.Babies); err != nil {
		return err
	}
	return nil
}

// formData resolves the active family and its babies and recipes for an
// event form
func (h *CareHandler) formData(r *http.Request, title string, values map[string]string) (*FormViewData, error) {
	user := GetUserFromContext(r.Context())

	families, active, err := h.familyService.ResolveActiveFamily(user.ID, requestedFamilyID(r))
	if err != nil {
		return nil, err
	}
	familyData, err := h.familyService.GetFamilyData(active, true, true)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}

	return &FormViewData{
		PageData:     h.pageData(r, title),
		FamilyScope:  FamilyScope{Families: families, ActiveFamily: active},
		Babies:       familyData.Babies,
		Recipes:      familyData.Recipes,
		FeedingTypes: models.FeedingTypes,
		Values:       values,
	}, nil
}

func (h *CareHandler) showForm(w http.ResponseWriter, r *http.Request, name, title string) {
	data, err := h.formData(r, title, nil)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading form", err)
		return
	}
	renderTemplate(w, h.templates, name, data)
}

// handleSubmitError re-renders the form for validation errors and maps
// everything else onto a status
func (h *CareHandler) handleSubmitError(w http.ResponseWriter, r *http.Request, name, title string, values map[string]string, err error) {
	msg, field, ok := validationMessage(err)
	if !ok {
		respondWithServiceError(w, "Error saving "+title, err)
		return
	}

	data, ferr := h.formData(r, title, values)
	if ferr != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading form", ferr)
		return
	}
	data.Error, data.Field = msg, field
	renderTemplate(w, h.templates, name, data)
}

// redirectToBaby sends the user to the dashboard of the family the baby
// belongs to
func (h *CareHandler) redirectToBaby(w http.ResponseWriter, r *http.Request, babyID int64) {
	user := GetUserFromContext(r.Context())
	target := "/user/" + user.Username
	if baby, err := h.familyService.GetBabyForUser(user.ID, babyID); err == nil {
		target = fmt.Sprintf("%s?family_id=%d", target, baby.FamilyID)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ShowAddFeeding renders the feeding form
func (h *CareHandler) ShowAddFeeding(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_feeding.tmpl", "Log feeding")
}

// AddFeeding logs a feeding
func (h *CareHandler) AddFeeding(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	values := formValues(r, "baby_id", "timestamp", "feeding_type", "breast_duration", "bottle_amount", "solid_amount", "recipe_id")

	feeding, err := feedingFromForm(values)
	if err == nil {
		err = h.careService.LogFeeding(GetUserFromContext(r.Context()).ID, feeding)
	}
	if err != nil {
		h.handleSubmitError(w, r, "add_feeding.tmpl", "Log feeding", values, err)
		return
	}

	h.redirectToBaby(w, r, feeding.BabyID)
}

func feedingFromForm(values map[string]string) (*models.Feeding, error) {
	var err error
	f := &models.Feeding{
		Timestamp:   parseTimestamp(values["timestamp"]),
		FeedingType: models.FeedingType(values["feeding_type"]),
	}
	if f.BabyID, err = parseRequiredID("baby_id", values["baby_id"]); err != nil {
		return nil, err
	}
	if f.BreastDuration, err = parseOptionalInt("breast_duration", values["breast_duration"]); err != nil {
		return nil, err
	}
	if f.BottleAmount, err = parseOptionalInt("bottle_amount", values["bottle_amount"]); err != nil {
		return nil, err
	}
	if f.SolidAmount, err = parseOptionalInt("solid_amount", values["solid_amount"]); err != nil {
		return nil, err
	}
	if f.RecipeID, err = parseOptionalID("recipe_id", values["recipe_id"]); err != nil {
		return nil, err
	}
	return f, nil
}

// ShowAddChanging renders the nappy change form
func (h *CareHandler) ShowAddChanging(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_changing.tmpl", "Log changing")
}

// AddChanging logs a nappy change
func (h *CareHandler) AddChanging(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	values := formValues(r, "baby_id", "timestamp", "wet_nappy", "poop_amount")

	changing := &models.Changing{
		Timestamp: parseTimestamp(values["timestamp"]),
		WetNappy:  values["wet_nappy"] != "",
	}
	var err error
	if changing.BabyID, err = parseRequiredID("baby_id", values["baby_id"]); err == nil {
		if changing.PoopAmount, err = parseOptionalInt("poop_amount", values["poop_amount"]); err == nil {
			err = h.careService.LogChanging(GetUserFromContext(r.Context()).ID, changing)
		}
	}
	if err != nil {
		h.handleSubmitError(w, r, "add_changing.tmpl", "Log changing", values, err)
		return
	}

	h.redirectToBaby(w, r, changing.BabyID)
}

// ShowAddSleeping renders the sleep form
func (h *CareHandler) ShowAddSleeping(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_sleeping.tmpl", "Log sleep")
}

// AddSleeping logs a sleep period
func (h *CareHandler) AddSleeping(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	values := formValues(r, "baby_id", "start_timestamp", "end_timestamp")

	sleeping := &models.Sleeping{
		StartTimestamp: parseTimestamp(values["start_timestamp"]),
		EndTimestamp:   parseOptionalTimestamp(values["end_timestamp"]),
	}
	var err error
	if sleeping.BabyID, err = parseRequiredID("baby_id", values["baby_id"]); err == nil {
		err = h.careService.LogSleeping(GetUserFromContext(r.Context()).ID, sleeping)
	}
	if err != nil {
		h.handleSubmitError(w, r, "add_sleeping.tmpl", "Log sleep", values, err)
		return
	}

	h.redirectToBaby(w, r, sleeping.BabyID)
}

// ShowAddNote renders the note form
func (h *CareHandler) ShowAddNote(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "add_note.tmpl", "Add note")
}

// AddNote records a note, optionally linked to one event
func (h *CareHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}
	values := formValues(r, "baby_id", "timestamp", "extra", "feeding_id", "changing_id", "sleeping_id")

	note, err := noteFromForm(values)
	if err == nil {
		err = h.careService.LogNote(GetUserFromContext(r.Context()).ID, note)
	}
	if err != nil {
		h.handleSubmitError(w, r, "add_note.tmpl", "Add note", values, err)
		return
	}

	h.redirectToBaby(w, r, note.BabyID)
}

func noteFromForm(values map[string]string) (*models.Note, error) {
	var err error
	n := &models.Note{
		Timestamp: parseTimestamp(values["timestamp"]),
		Extra:     values["extra"],
	}
	if n.BabyID, err = parseRequiredID("baby_id", values["baby_id"]); err != nil {
		return nil, err
	}
	if n.FeedingID, err = parseOptionalID("link", values["feeding_id"]); err != nil {
		return nil, err
	}
	if n.ChangingID, err = parseOptionalID("link", values["changing_id"]); err != nil {
		return nil, err
	}
	if n.SleepingID, err = parseOptionalID("link", values["sleeping_id"]); err != nil {
		return nil, err
	}
	return n, nil
}

