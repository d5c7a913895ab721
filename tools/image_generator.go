package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const maxImageBytes = 20 << 20

type ImageGeneratorConfig struct {
	// Endpoint is a text-to-image inference URL accepting {"inputs": prompt}.
	Endpoint  string
	Token     string
	OutputDir string
	Timeout   time.Duration
}

type ImageGeneratorTool struct {
	config ImageGeneratorConfig
	client *http.Client
	logger *zap.Logger
}

func NewImageGeneratorTool(config ImageGeneratorConfig, client *http.Client, logger *zap.Logger) *ImageGeneratorTool {
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.OutputDir == "" {
		config.OutputDir = os.TempDir()
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageGeneratorTool{config: config, client: client, logger: logger}
}

func (t *ImageGeneratorTool) Name() string {
	return "image_generator"
}

func (t *ImageGeneratorTool) Description() string {
	return "Generates an image from a text prompt and returns the path of the saved image file."
}

func (t *ImageGeneratorTool) Parameters() map[string]any {
	return stringParams(param{"prompt", "A description of the image to generate."})
}

func (t *ImageGeneratorTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	prompt, err := readString(args, "prompt")
	if err != nil {
		return "", err
	}
	if t.config.Endpoint == "" {
		return "", fmt.Errorf("%w: image generation endpoint is not set", ErrToolNotConfigured)
	}

	data, err := t.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("image service returned undecodable data: %w", err)
	}

	if err := os.MkdirAll(t.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(t.config.OutputDir, uuid.NewString()+"."+format)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	t.logger.Info("image_generated",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))

	return path, nil
}

func (t *ImageGeneratorTool) generate(ctx context.Context, prompt string) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")
	if t.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.Token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call image service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("image service returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}
