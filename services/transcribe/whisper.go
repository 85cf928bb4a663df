package transcribesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
)

// StatusError is returned when the inference API answers with a non-success status.
// Body is the raw response body, surfaced to the caller as the failure details.
type StatusError struct {
	StatusCode int
	Body       string
}

func (err StatusError) Error() string {
	return fmt.Sprintf("inference API status %d: %s", err.StatusCode, err.Body)
}

func (err StatusError) Details() string { return err.Body }

// whisperService sends recordings to a hosted speech-to-text model.
type whisperService struct {
	client *rest.Client
	url    string
	apiKey string
	logger core.Logger
}

var _ lecture.Transcriber = (*whisperService)(nil)

func NewWhisperService(conf *core.Config, client *http.Client, logger core.Logger) *whisperService {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if client == nil {
		client = &http.Client{}
	}
	return &whisperService{
		client: &rest.Client{HTTPClient: client},
		url:    conf.HuggingFace.BaseURL + "/models/" + conf.HuggingFace.WhisperModel,
		apiKey: conf.HuggingFace.APIKey,
		logger: logger,
	}
}

type whisperResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (svc whisperService) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(audio)
	if err != nil {
		return "", errors.Wrap(err, "reading audio")
	}

	headers := map[string]string{"Authorization": "Bearer " + svc.apiKey}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	res, err := svc.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return "", errors.Wrap(err, "calling speech-to-text model")
	}
	if res.StatusCode != http.StatusOK {
		svc.logger.Warn("speech-to-text model failed", map[string]interface{}{"status": res.StatusCode, "body": res.Body})
		return "", StatusError{StatusCode: res.StatusCode, Body: res.Body}
	}

	var out whisperResponse
	if err = json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", errors.Wrap(err, "decoding speech-to-text response")
	}
	return out.Text, nil
}
