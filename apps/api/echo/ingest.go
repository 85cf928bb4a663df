package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
)

const audioField = "audio"

type ingestApi struct {
	svc      *lecture.Service
	validate *validator.Validate
}

func registerIngestAPI(s *Server) {
	api := ingestApi{svc: s.LectureSvc, validate: s.Validate}

	g := s.app.Group("/api", lecturerAPIMiddleware)
	g.POST("/start_recording", api.startRecording)
	g.POST("/transcribe", api.transcribe)
	g.POST("/save_lecture", api.saveLecture)
}

func (api *ingestApi) startRecording(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

func (api *ingestApi) transcribe(ctx echo.Context) error {
	fh, err := ctx.FormFile(audioField)
	if err != nil {
		switch errors.Cause(err) {
		case http.ErrNotMultipart:
			return errNoAudio
		case http.ErrMissingFile:
			// a part sent without a filename is parsed as a plain value
			if form := ctx.Request().MultipartForm; form != nil && len(form.Value[audioField]) > 0 {
				return errNoSelectedFile
			}
			return errNoAudio
		default:
			return errors.Wrap(err, "reading audio part")
		}
	}
	if fh.Filename == "" {
		return errNoSelectedFile
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening audio part")
	}
	defer f.Close()

	text, err := api.svc.Transcribe(ctx.Request().Context(), getContextClaim(ctx), lecture.Audio{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return errors.Wrap(err, "transcribing")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"text": text})
}

type saveLectureResponse struct {
	Success   bool `json:"success"`
	LectureID int  `json:"lecture_id"`
}

func (api *ingestApi) saveLecture(ctx echo.Context) error {
	var data lecture.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(lecture.ErrMissingFields)
	}
	if err := data.Validate(api.validate); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			flds := make([]core.FieldError, 0, len(vErrs))
			for _, vErr := range vErrs {
				flds = append(flds, core.FieldError{Field: vErr.Field(), Error: msgMissingFields})
			}
			return core.NewValidationError(lecture.ErrMissingFields, flds...)
		}
		return err
	}

	l, err := api.svc.Save(ctx.Request().Context(), getContextClaim(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving lecture")
	}
	return ctx.JSON(http.StatusOK, saveLectureResponse{Success: true, LectureID: l.ID})
}
