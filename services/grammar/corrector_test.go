package grammarsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core"
)

func newService(t *testing.T, handler http.HandlerFunc) *modelService {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.HuggingFace = core.HuggingFaceConfig{APIKey: "hf_test", BaseURL: srv.URL, GrammarModel: "prithivida/grammar_error_correcter_v1"}
	return NewModelService(conf, srv.Client())
}

func TestModelService_Correct(t *testing.T) {
	ctx := context.Background()

	t.Run("candidates", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/prithivida/grammar_error_correcter_v1", r.URL.Path)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

			var req inferenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gec: teh loop run", req.Inputs)
			assert.EqualValues(t, 1, req.Parameters["num_return_sequences"])
			_, _ = w.Write([]byte(`[{"generated_text": " The loop runs. "}, {"generated_text": "  "}]`))
		})

		got, err := svc.Correct(ctx, "teh loop run")
		require.NoError(t, err)
		assert.Equal(t, []string{"The loop runs."}, got)
	})

	t.Run("no candidates", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		got, err := svc.Correct(ctx, "fine text")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("blank text skips the call", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected call")
		})
		got, err := svc.Correct(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("non-success status", func(t *testing.T) {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Rate limit reached"}`))
		})
		_, err := svc.Correct(ctx, "teh")
		var sErr StatusError
		require.True(t, errors.As(err, &sErr))
		assert.Equal(t, `{"error":"Rate limit reached"}`, sErr.Details())
	})
}

func TestPassthroughService(t *testing.T) {
	got, err := NewPassthroughService().Correct(context.Background(), "teh")
	require.NoError(t, err)
	assert.Nil(t, got)
}
