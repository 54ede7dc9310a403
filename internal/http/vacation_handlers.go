package http

import (
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
	"vacations-api/internal/service"
)

func (h *Handler) listVacations(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	page, err := h.vacations.List(c.Request.Context(), principal(c).UserID, q.filters())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pageToResponse(page))
}

func (h *Handler) getVacation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	view, err := h.vacations.Get(c.Request.Context(), principal(c).UserID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, vacationToResponse(*view))
}

func (h *Handler) vacationImage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	url, err := h.vacations.ImageURL(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *Handler) createVacation(c *gin.Context) {
	var form vacationForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		_ = c.Error(err)
		return
	}
	file, upload, err := h.openImage(fh)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer file.Close()

	vacation, err := h.vacations.Create(c.Request.Context(), form.input(), upload)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, vacationToResponse(domain.VacationView{Vacation: *vacation}))
}

func (h *Handler) updateVacation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var form vacationForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	var image *service.ImageUpload
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// keep the current image
	case err != nil:
		_ = c.Error(err)
		return
	default:
		file, upload, err := h.openImage(fh)
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer file.Close()
		image = &upload
	}

	vacation, err := h.vacations.Update(c.Request.Context(), id, form.input(), image)
	if err != nil {
		_ = c.Error(err)
		return
	}

	view, err := h.vacations.Get(c.Request.Context(), principal(c).UserID, vacation.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, vacationToResponse(*view))
}

func (h *Handler) deleteVacation(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	warnings, err := h.vacations.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{"deleted": id}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) follow(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.vacations.Follow(c.Request.Context(), principal(c).UserID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) unfollow(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.vacations.Unfollow(c.Request.Context(), principal(c).UserID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) followerReport(c *gin.Context) {
	rows, err := h.vacations.FollowerReport(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]FollowerReportResponse, len(rows))
	for i, row := range rows {
		resp[i] = FollowerReportResponse{
			VacationID:  row.VacationID,
			Destination: row.Destination,
			Followers:   row.FollowersCount,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) followerReportCSV(c *gin.Context) {
	rows, err := h.vacations.FollowerReport(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="followers.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"vacation_id", "destination", "followers"})
	for _, row := range rows {
		_ = w.Write([]string{
			strconv.FormatInt(row.VacationID, 10),
			row.Destination,
			strconv.Itoa(row.FollowersCount),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.WithError(err).Warn("write followers csv")
	}
}

func (h *Handler) openImage(fh *multipart.FileHeader) (multipart.File, service.ImageUpload, error) {
	if fh.Size > h.maxUpload {
		return nil, service.ImageUpload{}, apperror.Upload(fmt.Sprintf("image exceeds %d bytes", h.maxUpload), nil)
	}
	file, err := fh.Open()
	if err != nil {
		return nil, service.ImageUpload{}, apperror.Upload("read image", err)
	}
	return file, service.ImageUpload{
		Body:        file,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.InvalidField("id", "must be a positive integer")
	}
	return id, nil
}
