package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"guidebook/pkg/apperror"
	"guidebook/pkg/metrics"
)

// BackendPublisher tells the image backend that an uploaded file belongs
// to a saved document, so it moves it out of the temporary area.
type BackendPublisher struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
	Metrics *metrics.Metrics
}

func NewBackendPublisher(baseURL, secret string, m *metrics.Metrics) *BackendPublisher {
	return &BackendPublisher{BaseURL: baseURL, Secret: secret, HTTP: http.DefaultClient, Metrics: m}
}

func (p *BackendPublisher) Publish(ctx context.Context, filename string) error {
	err := p.publish(ctx, filename)
	p.Metrics.ObserveExternal("image_backend", err)
	return err
}

func (p *BackendPublisher) publish(ctx context.Context, filename string) error {
	form := url.Values{"secret": {p.Secret}, "filename": {filename}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/publish", strings.NewReader(form.Encode()))
	if err != nil {
		return apperror.Wrap(apperror.External, err, "Image backend request failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.External, err, "Image backend request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.New(apperror.External, "Image backend returns : %d %s",
			resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}
