package echoapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
	sheetsvc "github.com/trezcool/ratiba/services/spreadsheet"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type timetableApi struct {
	deps ServerDeps
}

func registerTimetableAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := timetableApi{deps: deps}

	tg := g.Group("/timetable", jwt)

	tg.POST("/upload", api.upload)
	tg.GET("/schedule/:id", api.schedule)
	tg.GET("/availability/:id", api.rangeAvailability)
	tg.GET("/availability", api.populationAvailability, adminMiddleware())

	eg := tg.Group("/exports", adminMiddleware())
	eg.GET("/batches", api.exportBatches)
	eg.GET("/availability", api.exportAvailability)
	eg.GET("/courses", api.exportCourses)
}

// Handlers

func (api *timetableApi) upload(ctx echo.Context) error {
	var data UploadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UploadRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a timetable file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	grid, err := sheetsvc.ReadGrid(file, fileHdr.Filename)
	if err != nil {
		if errors.Cause(err) == sheetsvc.ErrUnsupportedFormat {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "only .csv and .xlsx files are supported"})
		}
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file could not be parsed"})
	}

	records, err := api.deps.TimetableSvc.Upload(ctx.Request().Context(), grid, data.StudentID, data.StudentName)
	if err != nil {
		return errors.Wrap(err, "uploading timetable")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{
		StudentID:   data.StudentID,
		StudentName: data.StudentName,
		Count:       len(records),
		Records:     records,
	})
}

func (api *timetableApi) schedule(ctx echo.Context) error {
	res, err := api.deps.TimetableSvc.FullSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == timetable.ErrNoSchedule {
			return errNoSchedule
		}
		return errors.Wrap(err, "querying full schedule")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *timetableApi) rangeAvailability(ctx echo.Context) error {
	var data RangeAvailabilityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RangeAvailabilityRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	start, err := timetable.ParseDayTime(data.Start)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "start", Error: "invalid time; use HH:MM"})
	}
	end, err := timetable.ParseDayTime(data.End)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "end", Error: "invalid time; use HH:MM"})
	}

	res, err := api.deps.TimetableSvc.RangeAvailability(ctx.Request().Context(), ctx.Param("id"), timetable.Weekday(data.Day), start, end)
	if err != nil {
		if errors.Cause(err) == timetable.ErrNoSchedule {
			return errNoSchedule
		}
		return errors.Wrap(err, "querying range availability")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *timetableApi) populationAvailability(ctx echo.Context) error {
	day, fromSlot, toSlot, err := bindSlotWindow(ctx)
	if err != nil {
		return err
	}

	report, err := api.deps.TimetableSvc.PopulationAvailability(ctx.Request().Context(), day, fromSlot, toSlot)
	if err != nil {
		return errors.Wrap(err, "querying population availability")
	}
	return ctx.JSON(http.StatusOK, report)
}

// Exports

func (api *timetableApi) exportBatches(ctx echo.Context) error {
	report, err := api.deps.TimetableSvc.BatchReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building batch report")
	}
	return api.sendReport(ctx, report)
}

func (api *timetableApi) exportAvailability(ctx echo.Context) error {
	day, fromSlot, toSlot, err := bindSlotWindow(ctx)
	if err != nil {
		return err
	}

	report, err := api.deps.TimetableSvc.AvailabilityReport(ctx.Request().Context(), day, fromSlot, toSlot)
	if err != nil {
		return errors.Wrap(err, "building availability report")
	}
	return api.sendReport(ctx, report)
}

func (api *timetableApi) exportCourses(ctx echo.Context) error {
	report, err := api.deps.TimetableSvc.CourseReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building course report")
	}
	return api.sendReport(ctx, report)
}

func (api *timetableApi) sendReport(ctx echo.Context, report timetable.Report) error {
	format := ctx.QueryParam("format")
	if format == "" {
		format = sheetsvc.FormatCSV
	}

	var buf bytes.Buffer
	if err := sheetsvc.WriteReport(&buf, report, format); err != nil {
		if errors.Cause(err) == sheetsvc.ErrUnsupportedFormat {
			return core.NewValidationError(nil, core.FieldError{Field: "format", Error: "supported formats: csv, xlsx"})
		}
		return errors.Wrap(err, "writing report")
	}

	contentType := contentTypeCSV
	if format == sheetsvc.FormatXLSX {
		contentType = contentTypeXLSX
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+sheetsvc.Filename(report, format)+`"`)
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

func bindSlotWindow(ctx echo.Context) (timetable.Weekday, int, int, error) {
	day := timetable.Weekday(ctx.QueryParam("day"))

	fromSlot, err := strconv.Atoi(ctx.QueryParam("from_slot"))
	if err != nil {
		return "", 0, 0, core.NewValidationError(nil, core.FieldError{Field: "from_slot", Error: "a slot number is required"})
	}
	toSlot, err := strconv.Atoi(ctx.QueryParam("to_slot"))
	if err != nil {
		return "", 0, 0, core.NewValidationError(nil, core.FieldError{Field: "to_slot", Error: "a slot number is required"})
	}
	return day, fromSlot, toSlot, nil
}

type (
	UploadRequest struct {
		StudentID   string `form:"id" validate:"required"`
		StudentName string `form:"student_name" validate:"required"`
	}

	UploadResponse struct {
		StudentID   string               `json:"id"`
		StudentName string               `json:"student_name"`
		Count       int                  `json:"count"`
		Records     []timetable.BusySlot `json:"records"`
	}

	RangeAvailabilityRequest struct {
		Day   string `query:"day" json:"day" validate:"required"`
		Start string `query:"start" json:"start" validate:"required"`
		End   string `query:"end" json:"end" validate:"required"`
	}
)

func (ur *UploadRequest) Validate(validate *validator.Validate) error {
	ur.StudentID = core.CleanString(ur.StudentID)
	ur.StudentName = core.CleanString(ur.StudentName)
	return validate.Struct(ur)
}

func (rr *RangeAvailabilityRequest) Validate(validate *validator.Validate) error {
	rr.Day = core.CleanString(rr.Day)
	rr.Start = core.CleanString(rr.Start)
	rr.End = core.CleanString(rr.End)
	return validate.Struct(rr)
}
