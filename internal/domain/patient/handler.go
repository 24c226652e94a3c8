package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor))
	g.GET("/patients", h.List)
	g.POST("/patients", h.Create)
	g.GET("/patients/:id", h.Get)
	g.PUT("/patients/:id", h.Update)
	g.POST("/patients/:id/reports", h.AddReports)
	g.DELETE("/patients/:id/reports/:report_id", h.DeleteReport)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/patients/:id", h.Delete)
	admin.POST("/patients/:id/assign-doctor/:doctor_id", h.AssignDoctor)
	admin.DELETE("/patients/:id/remove-doctor/:doctor_id", h.RemoveDoctor)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.CreatePatient(ctx, auth.PrincipalFromContext(ctx), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.GetPatient(ctx, auth.PrincipalFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	patients, total, err := h.svc.ListPatients(ctx, auth.PrincipalFromContext(ctx), c.QueryParam("search"), pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, int(total), pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.UpdatePatient(ctx, auth.PrincipalFromContext(ctx), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeletePatient(ctx, auth.PrincipalFromContext(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	doctorID, err := pathID(c, "doctor_id")
	if err != nil {
		return err
	}
	doctors, err := h.svc.AssignDoctor(c.Request().Context(), patientID, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": patientID, "doctors": doctors})
}

func (h *Handler) RemoveDoctor(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	doctorID, err := pathID(c, "doctor_id")
	if err != nil {
		return err
	}
	doctors, err := h.svc.RemoveDoctor(c.Request().Context(), patientID, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": patientID, "doctors": doctors})
}

func (h *Handler) AddReports(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Reports []*ReportInput `json:"reports"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	created, err := h.svc.AddReports(ctx, auth.PrincipalFromContext(ctx), patientID, body.Reports)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"reports": created})
}

func (h *Handler) DeleteReport(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	reportID, err := pathID(c, "report_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	remaining, err := h.svc.DeleteReport(ctx, auth.PrincipalFromContext(ctx), patientID, reportID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reports": remaining})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
