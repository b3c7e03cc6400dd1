package handler

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/repository"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// OrgHandler serves organization management endpoints.
type OrgHandler struct {
	Orgs *repository.OrganizationRepo
}

func NewOrgHandler(o *repository.OrganizationRepo) *OrgHandler { return &OrgHandler{Orgs: o} }

type createOrgReq struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	WeekStartsOn *int    `json:"weekStartsOn"`
	DisplayTitle *string `json:"displayTitle"`
}

// Create registers a new organization. Public so a company can bootstrap
// itself before any of its users exist.
func (h *OrgHandler) Create(c echo.Context) error {
	var req createOrgReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if name == "" || slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and slug required"})
	}
	if !slugRegex.MatchString(slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug must be lowercase letters, digits and hyphens"})
	}
	weekStartsOn := 0
	if req.WeekStartsOn != nil {
		if *req.WeekStartsOn < 0 || *req.WeekStartsOn > 6 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekStartsOn must be 0..6"})
		}
		weekStartsOn = *req.WeekStartsOn
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	org := &repository.Organization{Name: name, Slug: slug, WeekStartsOn: weekStartsOn, DisplayTitle: req.DisplayTitle}
	if err := h.Orgs.Create(ctx, org); err != nil {
		if err == repository.ErrSlugExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slug already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create organization failed"})
	}
	return c.JSON(http.StatusCreated, org)
}

// List returns all organizations (identity fields only; settings stay
// private to each tenant).
func (h *OrgHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type orgPart struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	out := make([]orgPart, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgPart{ID: o.ID, Name: o.Name, Slug: o.Slug})
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": out})
}

// GetSettings returns the caller organization's editable settings.
func (h *OrgHandler) GetSettings(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, orgID)
	if err != nil {
		if err == repository.ErrOrgNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, repository.OrgSettings{WeekStartsOn: org.WeekStartsOn, DisplayTitle: org.DisplayTitle})
}

type patchSettingsReq struct {
	WeekStartsOn *int    `json:"weekStartsOn"`
	DisplayTitle *string `json:"displayTitle"`
}

// UpdateSettings merges the provided fields into the caller organization's
// settings. Absent fields keep their stored values.
func (h *OrgHandler) UpdateSettings(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req patchSettingsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.WeekStartsOn != nil && (*req.WeekStartsOn < 0 || *req.WeekStartsOn > 6) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekStartsOn must be 0..6"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, orgID)
	if err != nil {
		if err == repository.ErrOrgNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	settings := repository.OrgSettings{WeekStartsOn: org.WeekStartsOn, DisplayTitle: org.DisplayTitle}
	if req.WeekStartsOn != nil {
		settings.WeekStartsOn = *req.WeekStartsOn
	}
	if req.DisplayTitle != nil {
		settings.DisplayTitle = req.DisplayTitle
	}
	if err := h.Orgs.UpdateSettings(ctx, orgID, settings); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, settings)
}
