package grammarsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
)

// StatusError is returned when the inference API answers with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (err StatusError) Error() string {
	return fmt.Sprintf("inference API status %d: %s", err.StatusCode, err.Body)
}

func (err StatusError) Details() string { return err.Body }

// correctionPrefix selects the grammar error correction task of the model.
const correctionPrefix = "gec: "

// modelService corrects text with a hosted text-to-text model.
type modelService struct {
	client *rest.Client
	url    string
	apiKey string
}

var _ lecture.Corrector = (*modelService)(nil)

func NewModelService(conf *core.Config, client *http.Client) *modelService {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	if client == nil {
		client = &http.Client{}
	}
	return &modelService{
		client: &rest.Client{HTTPClient: client},
		url:    conf.HuggingFace.BaseURL + "/models/" + conf.HuggingFace.GrammarModel,
		apiKey: conf.HuggingFace.APIKey,
	}
}

type (
	inferenceRequest struct {
		Inputs     string                 `json:"inputs"`
		Parameters map[string]interface{} `json:"parameters,omitempty"`
	}

	generation struct {
		GeneratedText string `json:"generated_text"`
	}
)

// Correct returns the model's generations in order, skipping the blank ones.
func (svc modelService) Correct(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	body, err := json.Marshal(inferenceRequest{
		Inputs:     correctionPrefix + text,
		Parameters: map[string]interface{}{"num_return_sequences": 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding correction request")
	}

	res, err := svc.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.url,
		Headers: map[string]string{
			"Authorization": "Bearer " + svc.apiKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "calling correction model")
	}
	if res.StatusCode != http.StatusOK {
		return nil, StatusError{StatusCode: res.StatusCode, Body: res.Body}
	}

	var generations []generation
	if err = json.Unmarshal([]byte(res.Body), &generations); err != nil {
		return nil, errors.Wrap(err, "decoding correction response")
	}
	candidates := make([]string, 0, len(generations))
	for _, g := range generations {
		if s := strings.TrimSpace(g.GeneratedText); s != "" {
			candidates = append(candidates, s)
		}
	}
	return candidates, nil
}

// passthroughService never corrects anything. Used when grammar correction is disabled.
type passthroughService struct{}

var _ lecture.Corrector = passthroughService{}

func NewPassthroughService() passthroughService { return passthroughService{} }

func (passthroughService) Correct(context.Context, string) ([]string, error) { return nil, nil }
