package actions

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"terminator/internal/ports"
)

// Images generates pictures with the OpenAI images endpoint.
type Images struct {
	client *openai.Client
	model  openai.ImageModel
}

// NewImages returns nil when apiKey is empty; a nil *Images reports
// ports.ErrNotConfigured.
func NewImages(apiKey string, httpClient *http.Client, opts ...option.RequestOption) *Images {
	if apiKey == "" {
		return nil
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	c := openai.NewClient(opts...)
	return &Images{client: &c, model: openai.ImageModelDallE3}
}

func (i *Images) Generate(ctx context.Context, prompt string) (string, error) {
	if i == nil || i.client == nil {
		return "", ports.ErrNotConfigured
	}

	res, err := i.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          i.model,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].URL == "" {
		return "", errors.New("generate image: empty response")
	}
	return res.Data[0].URL, nil
}
