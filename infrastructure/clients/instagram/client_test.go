package instagram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/instagram"
)

func TestPublish_ImageSkipsPolling(t *testing.T) {
	var statusCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/ig-user-1/media", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/pic.jpg", r.FormValue("image_url"))
		assert.Equal(t, "morning brew", r.FormValue("caption"))
		assert.Empty(t, r.FormValue("media_type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
	})
	mux.HandleFunc("/container-1", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{"status_code": "FINISHED"})
	})
	mux.HandleFunc("/ig-user-1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "container-1", r.FormValue("creation_id"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-9"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := instagram.NewClientWithBase(server.URL, server.Client(), 3, time.Millisecond)
	cred := &model.Credential{ProviderID: "ig-user-1", AccessToken: "page-token"}

	result, err := client.Publish(context.Background(), cred, model.PublishContent{
		Message:   "morning brew",
		MediaURL:  "https://cdn.example.com/pic.jpg",
		MediaType: model.MediaTypeImage,
	})

	assert.NoError(t, err)
	assert.Equal(t, "media-9", result.RemoteID)
	assert.Equal(t, 0, statusCalls)
}

func TestPublish_VideoWaitsForProcessing(t *testing.T) {
	var statusCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/ig-user-1/media", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/clip.mp4", r.FormValue("video_url"))
		assert.Equal(t, "REELS", r.FormValue("media_type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-2"})
	})
	mux.HandleFunc("/container-2", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		status := "IN_PROGRESS"
		if statusCalls >= 3 {
			status = "FINISHED"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status_code": status})
	})
	mux.HandleFunc("/ig-user-1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-10"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := instagram.NewClientWithBase(server.URL, server.Client(), 5, time.Millisecond)
	cred := &model.Credential{ProviderID: "ig-user-1", AccessToken: "page-token"}

	result, err := client.Publish(context.Background(), cred, model.PublishContent{
		MediaURL:  "https://cdn.example.com/clip.mp4",
		MediaType: model.MediaTypeVideo,
	})

	assert.NoError(t, err)
	assert.Equal(t, "media-10", result.RemoteID)
	assert.Equal(t, 3, statusCalls)
}

func TestPublish_VideoNeverReadyTimesOutWithoutPublishing(t *testing.T) {
	var publishCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/ig-user-1/media", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-3"})
	})
	mux.HandleFunc("/container-3", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status_code": "IN_PROGRESS"})
	})
	mux.HandleFunc("/ig-user-1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		publishCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "never"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := instagram.NewClientWithBase(server.URL, server.Client(), 3, time.Millisecond)
	cred := &model.Credential{ProviderID: "ig-user-1", AccessToken: "page-token"}

	_, err := client.Publish(context.Background(), cred, model.PublishContent{
		MediaURL:  "https://cdn.example.com/clip.mp4",
		MediaType: model.MediaTypeVideo,
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindMediaTimeout, model.KindOf(err))
	assert.Equal(t, 0, publishCalls)
}

func TestPublish_ContainerErrorFailsPublish(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ig-user-1/media", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-4"})
	})
	mux.HandleFunc("/container-4", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status_code": "ERROR"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := instagram.NewClientWithBase(server.URL, server.Client(), 3, time.Millisecond)
	cred := &model.Credential{ProviderID: "ig-user-1", AccessToken: "page-token"}

	_, err := client.Publish(context.Background(), cred, model.PublishContent{
		MediaURL:  "https://cdn.example.com/clip.mp4",
		MediaType: model.MediaTypeVideo,
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindRemoteAPI, model.KindOf(err))
}

func TestPublish_ExpiredTokenIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "Error validating access token", "code": 190},
		})
	}))
	defer server.Close()

	client := instagram.NewClientWithBase(server.URL, server.Client(), 3, time.Millisecond)
	cred := &model.Credential{ProviderID: "ig-user-1", AccessToken: "expired"}

	_, err := client.Publish(context.Background(), cred, model.PublishContent{
		MediaURL:  "https://cdn.example.com/pic.jpg",
		MediaType: model.MediaTypeImage,
	})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindTokenExpired, model.KindOf(err))
}

func TestPublish_RequiresMedia(t *testing.T) {
	client := instagram.NewClientWithBase("http://unused", nil, 3, time.Millisecond)

	_, err := client.Publish(context.Background(), &model.Credential{ProviderID: "ig-1"}, model.PublishContent{Message: "text only"})

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}
