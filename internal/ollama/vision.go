package ollama

import (
	"context"
	"encoding/base64"
	"strings"
)

const visionModel = "llava"

// AnalyzeImage asks the llava model to describe an image.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)
	return c.generate(ctx, generateRequest{
		Model:  visionModel,
		Prompt: prompt,
		Images: []string{encoded},
	})
}

// VisionAvailable reports whether a llava model is installed.
func (c *Client) VisionAvailable(ctx context.Context) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), visionModel) {
			return true
		}
	}
	return false
}
