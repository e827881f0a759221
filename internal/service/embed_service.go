package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"postlens-be/internal/constant"
	"postlens-be/internal/dto"
	"postlens-be/internal/pkg/logger"
	"postlens-be/pkg/scriptload"
)

// Embed script URLs per platform, mirroring what the web client would load.
var platformScripts = map[string]string{
	constant.PlatformInstagram: "https://www.instagram.com/embed.js",
	constant.PlatformX:         "https://platform.twitter.com/widgets.js",
	constant.PlatformYouTube:   "https://www.youtube.com/iframe_api",
}

// oEmbed discovery endpoints used when the platform script is unavailable.
var oembedEndpoints = map[string]string{
	constant.PlatformX:       "https://publish.twitter.com/oembed",
	constant.PlatformYouTube: "https://www.youtube.com/oembed",
}

type IEmbedService interface {
	// GetEmbed resolves the render plan for one post preview: native script
	// mode when the platform script is loaded, oEmbed fallback otherwise.
	GetEmbed(ctx context.Context, platform, postURL string) (*dto.EmbedResponse, error)
}

type embedService struct {
	loaders map[string]*scriptload.Loader
	client  *http.Client
	logger  logger.ILogger
}

func NewEmbedService(loadTimeout time.Duration, log logger.ILogger) IEmbedService {
	client := &http.Client{Timeout: loadTimeout}

	loaders := make(map[string]*scriptload.Loader, len(platformScripts))
	for platform, scriptURL := range platformScripts {
		u := scriptURL
		loaders[platform] = scriptload.NewLoader(func(ctx context.Context) error {
			return probeScript(ctx, client, u)
		}, loadTimeout)
	}

	return &embedService{
		loaders: loaders,
		client:  client,
		logger:  log,
	}
}

// probeScript verifies the platform script is reachable. The body is not
// needed server-side; reachability is the signal the client can load it too.
func probeScript(ctx context.Context, client *http.Client, scriptURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, scriptURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("script endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *embedService) GetEmbed(ctx context.Context, platform, postURL string) (*dto.EmbedResponse, error) {
	if !constant.IsSupportedPlatform(platform) {
		return nil, ErrUnsupportedPlatform
	}

	state := s.loaders[platform].Load(ctx)
	resp := &dto.EmbedResponse{
		Platform:    platform,
		PostURL:     postURL,
		ScriptState: state.String(),
	}

	if state == scriptload.Loaded {
		resp.Mode = "script"
		return resp, nil
	}

	resp.Mode = "fallback"
	s.fillOEmbed(ctx, platform, postURL, resp)
	return resp, nil
}

// fillOEmbed enriches the fallback response where the platform offers a
// public oEmbed endpoint. Failures degrade to a bare link preview.
func (s *embedService) fillOEmbed(ctx context.Context, platform, postURL string, resp *dto.EmbedResponse) {
	endpoint, ok := oembedEndpoints[platform]
	if !ok {
		return
	}

	reqURL := fmt.Sprintf("%s?url=%s&format=json", endpoint, url.QueryEscape(postURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return
	}
	httpResp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("EmbedService", "oEmbed fetch failed", map[string]interface{}{
			"platform": platform,
			"error":    err.Error(),
		})
		return
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return
	}

	var payload struct {
		HTML         string `json:"html"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&payload); err != nil {
		return
	}
	resp.HTML = payload.HTML
	resp.AuthorName = payload.AuthorName
	resp.Thumbnail = payload.ThumbnailURL
}
