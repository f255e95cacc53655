package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"social-publisher/domain/model"
)

const defaultAPIURL = "https://api.openai.com"

// Client generates captions and images for automation jobs. Any failure is
// wrapped as a generator error so the scheduler can classify it without
// consulting this package.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	model      string
	imageModel string
}

func NewClient(apiKey, chatModel, imageModel string) *Client {
	return &Client{
		baseURL:    defaultAPIURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		model:      chatModel,
		imageModel: imageModel,
	}
}

func NewClientWithBase(baseURL string, httpClient *http.Client, apiKey, chatModel, imageModel string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, apiKey: apiKey, model: chatModel, imageModel: imageModel}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate produces a caption and an image for one occurrence of an
// automation. The day number keeps successive occurrences of the same prompt
// from repeating themselves.
func (c *Client) Generate(ctx context.Context, prompt string, day int) (string, string, error) {
	caption, err := c.generateCaption(ctx, prompt, day)
	if err != nil {
		return "", "", model.NewGeneratorError(err)
	}
	mediaURL, err := c.generateImage(ctx, prompt, day)
	if err != nil {
		return "", "", model.NewGeneratorError(err)
	}
	return caption, mediaURL, nil
}

func (c *Client) generateCaption(ctx context.Context, prompt string, day int) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write short social media captions. Reply with the caption only."},
			{Role: "user", Content: fmt.Sprintf("Campaign theme: %s. Write the caption for day %d. Vary it from previous days.", prompt, day)},
		},
	}
	var out chatResponse
	if err := c.post(ctx, "/v1/chat/completions", reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no caption returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (c *Client) generateImage(ctx context.Context, prompt string, day int) (string, error) {
	reqBody := imageRequest{
		Model:  c.imageModel,
		Prompt: fmt.Sprintf("%s, variation %d, social media post image", prompt, day),
		N:      1,
		Size:   "1024x1024",
	}
	var out imageResponse
	if err := c.post(ctx, "/v1/images/generations", reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("no image returned")
	}
	return out.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("openai %s: %s", path, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
