package assessment

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/heartsync/api/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor))
	g.POST("/patients/:id/risk-assessment", h.Create)
	g.POST("/patients/:id/risk-assessment/preview", h.Preview)
	g.GET("/patients/:id/risk-assessments", h.List)
	g.GET("/patients/:id/risk-assessments/:assessment_id", h.Get)
	g.PUT("/patients/:id/risk-assessments/:assessment_id", h.UpdateRecommendations)
	g.DELETE("/patients/:id/risk-assessments/:assessment_id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.svc.Create(ctx, auth.PrincipalFromContext(ctx), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.svc.List(ctx, auth.PrincipalFromContext(ctx), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"assessments": list})
}

func (h *Handler) Get(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	assessmentID, err := pathID(c, "assessment_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, auth.PrincipalFromContext(ctx), patientID, assessmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateRecommendations(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	assessmentID, err := pathID(c, "assessment_id")
	if err != nil {
		return err
	}
	var body struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	a, err := h.svc.UpdateRecommendations(ctx, auth.PrincipalFromContext(ctx), patientID, assessmentID, body.Recommendations)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	assessmentID, err := pathID(c, "assessment_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.PrincipalFromContext(ctx), patientID, assessmentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Preview(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		ReportID int64 `json:"report_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	preview, err := h.svc.Preview(ctx, auth.PrincipalFromContext(ctx), patientID, body.ReportID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
