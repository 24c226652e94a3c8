package records

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

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
	g.POST("/patients/:id/records", h.Create)
	g.GET("/patients/:id/records", h.List)
	g.GET("/patients/:id/records/:record_id", h.Get)
	g.GET("/patients/:id/records/:record_id/download", h.Download)
	g.PUT("/patients/:id/records/:record_id", h.Update)
	g.DELETE("/patients/:id/records/:record_id", h.Delete)
}

// Create accepts multipart form data when a file accompanies the record, or
// plain JSON for note-only records.
func (h *Handler) Create(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var in CreateInput
	var up *Upload
	if isMultipart(c) {
		if in, up, err = bindMultipart(c); err != nil {
			return err
		}
		if up != nil {
			if closer, ok := up.Content.(io.Closer); ok {
				defer closer.Close()
			}
		}
	} else if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	rec, err := h.svc.Create(ctx, auth.PrincipalFromContext(ctx), patientID, &in, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	list, total, err := h.svc.List(ctx, auth.PrincipalFromContext(ctx), patientID, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, int(total), pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "record_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	rec, err := h.svc.Get(ctx, auth.PrincipalFromContext(ctx), patientID, recordID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Download(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "record_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	rec, reader, err := h.svc.OpenFile(ctx, auth.PrincipalFromContext(ctx), patientID, recordID)
	if err != nil {
		return err
	}
	defer reader.Close()

	mime := "application/octet-stream"
	if rec.MimeType != nil {
		mime = *rec.MimeType
	}
	name := "record"
	if rec.FileName != nil {
		name = *rec.FileName
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, name))
	return c.Stream(http.StatusOK, mime, reader)
}

func (h *Handler) Update(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "record_id")
	if err != nil {
		return err
	}

	var in UpdateInput
	var up *Upload
	if isMultipart(c) {
		create, upload, err := bindMultipart(c)
		if err != nil {
			return err
		}
		if upload != nil {
			if closer, ok := upload.Content.(io.Closer); ok {
				defer closer.Close()
			}
		}
		up = upload
		if create.Title != "" {
			in.Title = &create.Title
		}
		in.Description = create.Description
		in.RecordType = create.RecordType
		in.RecordedAt = create.RecordedAt
	} else if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	rec, err := h.svc.Update(ctx, auth.PrincipalFromContext(ctx), patientID, recordID, &in, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Delete(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "record_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.PrincipalFromContext(ctx), patientID, recordID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func bindMultipart(c echo.Context) (CreateInput, *Upload, error) {
	in := CreateInput{Title: c.FormValue("title")}
	if v := c.FormValue("description"); v != "" {
		in.Description = &v
	}
	if v := c.FormValue("record_type"); v != "" {
		in.RecordType = &v
	}
	if v := c.FormValue("recorded_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return in, nil, echo.NewHTTPError(http.StatusBadRequest, "recorded_at must be RFC 3339")
		}
		in.RecordedAt = &t
	}

	fh, err := c.FormFile("file")
	if err != nil {
		// No file part means a metadata-only multipart request.
		return in, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
	}
	return in, &Upload{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Content:  f,
	}, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
