package imagegen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyreel/internal/blobstore"
	"storyreel/internal/jobs"
	"storyreel/internal/mocks"
	"storyreel/internal/models"
	"storyreel/internal/provider/imagegen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSana_StoresImageUnderOwner(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	blobs, err := blobstore.NewLocal(t.TempDir(), "http://files.local", zap.NewNop())
	require.NoError(t, err)
	gen := imagegen.NewSana(imagegen.SanaConfig{BaseURL: srv.URL, PromptStyleSuffix: ", cinematic", Ratio: "16:9"}, blobs, zap.NewNop())

	res, err := gen.Generate(context.Background(), imagegen.Request{Prompt: "a lighthouse", Owner: "proj-1"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "http://files.local/proj-1/"), res.URL)
	assert.Equal(t, "a lighthouse, cinematic", got["prompt"])
	assert.Equal(t, "16:9", got["ratio"])
}

func TestSana_ServerErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gpu busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	blobs, err := blobstore.NewLocal(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)
	gen := imagegen.NewSana(imagegen.SanaConfig{BaseURL: srv.URL}, blobs, zap.NewNop())

	_, err = gen.Generate(context.Background(), imagegen.Request{Prompt: "x", Owner: "p"})

	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
}

func TestReference_WithoutReferencesDelegates(t *testing.T) {
	fallback := mocks.NewMockImageGenerator(t)
	client := mocks.NewMockJobClient(t)
	req := imagegen.Request{Prompt: "forest"}
	fallback.On("Generate", mock.Anything, req).Return(imagegen.Result{URL: "https://img/forest.png"}, nil).Once()

	gen := imagegen.NewReference(client, fallback, jobs.WaitOptions{}, zap.NewNop())
	res, err := gen.Generate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "https://img/forest.png", res.URL)
}

func TestReference_WaitsForJob(t *testing.T) {
	client := mocks.NewMockJobClient(t)
	client.On("Kind").Return(models.ProviderRefImage).Maybe()
	client.On("CreateTask", mock.Anything, mock.MatchedBy(func(in jobs.Input) bool {
		return in.Prompt == "hero at the gate" && len(in.ImageURLs) == 1
	})).Return(jobs.Status{JobID: "img-1", State: jobs.StateQueued}, nil).Once()
	client.On("GetStatus", mock.Anything, "img-1").
		Return(jobs.Status{JobID: "img-1", State: jobs.StateCompleted, Progress: 100, ResultURL: "https://cdn/hero.png"}, nil).Once()

	gen := imagegen.NewReference(client, imagegen.Mock{}, jobs.WaitOptions{PollInterval: time.Millisecond, Timeout: time.Second}, zap.NewNop())
	res, err := gen.Generate(context.Background(), imagegen.Request{Prompt: "hero at the gate", ReferenceURLs: []string{"https://ref/hero.png"}})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/hero.png", res.URL)
}

func TestReference_FailedJobPropagates(t *testing.T) {
	client := mocks.NewMockJobClient(t)
	client.On("Kind").Return(models.ProviderRefImage).Maybe()
	client.On("CreateTask", mock.Anything, mock.Anything).Return(jobs.Status{JobID: "img-2"}, nil).Once()
	client.On("GetStatus", mock.Anything, "img-2").Return(jobs.Status{JobID: "img-2", State: jobs.StateFailed, Error: "nsfw"}, nil).Once()

	gen := imagegen.NewReference(client, imagegen.Mock{}, jobs.WaitOptions{PollInterval: time.Millisecond, Timeout: time.Second}, zap.NewNop())
	_, err := gen.Generate(context.Background(), imagegen.Request{Prompt: "x", ReferenceURLs: []string{"https://ref/a.png"}})

	assert.True(t, errors.Is(err, models.ErrGenerationFailed))
}

func TestMock_IsDeterministic(t *testing.T) {
	a, err := imagegen.Mock{}.Generate(context.Background(), imagegen.Request{Prompt: "same"})
	require.NoError(t, err)
	b, err := imagegen.Mock{}.Generate(context.Background(), imagegen.Request{Prompt: "same"})
	require.NoError(t, err)
	assert.Equal(t, a.URL, b.URL)
	assert.NotEmpty(t, a.URL)
}
