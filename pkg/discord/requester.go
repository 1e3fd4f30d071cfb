package discord

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-resty/resty/v2"
)

// Requester performs one REST call against the Discord API and returns the
// raw response body. Non-2xx responses are returned as errors.
type Requester interface {
	Request(ctx context.Context, method, route string, body any) ([]byte, error)
}

// restRequester signs requests with whatever the underlying http.Client
// does, which for user calls is an oauth2 transport.
type restRequester struct {
	client *resty.Client
}

func newRESTRequester(hc *http.Client, apiBase string) *restRequester {
	c := resty.NewWithClient(hc).
		SetBaseURL(apiBase).
		SetHeader("Accept", "application/json")
	return &restRequester{client: c}
}

func (r *restRequester) Request(ctx context.Context, method, route string, body any) ([]byte, error) {
	req := r.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, route)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &HTTPError{
			Method:     method,
			Route:      route,
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}
	}
	return resp.Body(), nil
}

// botRequester sends requests through a discordgo session, which carries
// the "Bot" authorization header and handles rate limit buckets.
type botRequester struct {
	dg      *discordgo.Session
	apiBase string
}

func (b *botRequester) Request(ctx context.Context, method, route string, body any) ([]byte, error) {
	url := b.apiBase + route
	return b.dg.RequestWithBucketID(method, url, body, url, discordgo.WithContext(ctx))
}
