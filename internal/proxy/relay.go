// Package proxy relays calls to the Apollo API and normalizes the reply into
// a {success, data, error} envelope.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const excerptLen = 100

// Envelope is the body of every relay reply.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// Request is the transport-neutral shape of an inbound relay call.
type Request struct {
	Path     string
	Method   string
	RawQuery string
	Body     []byte
	Header   http.Header
}

type Options struct {
	UpstreamURL string // e.g. https://api.apollo.io
	PathPrefix  string // stripped from Request.Path
	APIKey      string // used when the caller sends neither a bearer token nor Api-Key
	TokenHeader string // inbound header carrying the provider bearer token
}

type Relay struct {
	opts       Options
	httpClient *http.Client
	log        *zap.Logger
}

func NewRelay(opts Options, httpClient *http.Client, log *zap.Logger) *Relay {
	if opts.TokenHeader == "" {
		opts.TokenHeader = fiber.HeaderAuthorization
	}
	opts.UpstreamURL = strings.TrimRight(opts.UpstreamURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Relay{opts: opts, httpClient: httpClient, log: log}
}

// Endpoint maps an inbound path to the provider path.
func (r *Relay) Endpoint(path string) string {
	endpoint := strings.TrimPrefix(path, r.opts.PathPrefix)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}

// Forward performs one upstream call. It never returns an error: every failure
// is folded into the status code and envelope.
func (r *Relay) Forward(ctx context.Context, req Request) (int, Envelope) {
	endpoint := r.Endpoint(req.Path)
	r.log.Info("relay call",
		zap.String("endpoint", endpoint),
		zap.String("method", req.Method),
		zap.String("query", req.RawQuery),
	)

	url := r.opts.UpstreamURL + endpoint
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	upReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return r.failure(err)
	}
	upReq.Header.Set("Content-Type", "application/json")
	r.authorize(upReq, req.Header)

	resp, err := r.httpClient.Do(upReq)
	if err != nil {
		return r.failure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return r.failure(err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		r.logInvalidBody(resp, raw)
		msg := "Invalid JSON response: " + excerpt(raw, excerptLen)
		return fiber.StatusInternalServerError, Envelope{Success: false, Error: &msg}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	env := Envelope{Success: ok, Data: payload}
	if !ok {
		msg := upstreamError(payload)
		env.Error = &msg
	}
	return resp.StatusCode, env
}

// authorize picks the provider credential: a bearer token wins over an API key.
func (r *Relay) authorize(upReq *http.Request, in http.Header) {
	if token := bearer(in.Get(r.opts.TokenHeader)); token != "" {
		upReq.Header.Set("Authorization", "Bearer "+token)
		return
	}
	apiKey := in.Get("Api-Key")
	if apiKey == "" {
		apiKey = r.opts.APIKey
	}
	upReq.Header.Set("Api-Key", apiKey)
}

func (r *Relay) failure(err error) (int, Envelope) {
	r.log.Error("relay error", zap.Error(err))
	msg := err.Error()
	return fiber.StatusInternalServerError, Envelope{Success: false, Error: &msg}
}

func (r *Relay) logInvalidBody(resp *http.Response, raw []byte) {
	fields := []zap.Field{
		zap.Int("status", resp.StatusCode),
		zap.String("body", excerpt(raw, 2*excerptLen)),
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw)); err == nil {
			fields = append(fields, zap.String("title", strings.TrimSpace(doc.Find("title").First().Text())))
		}
	}
	r.log.Error("relay json parse error", fields...)
}

// Handler adapts the relay to fiber.
func (r *Relay) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := http.Header{}
		c.Request().Header.VisitAll(func(k, v []byte) {
			header.Add(string(k), string(v))
		})

		status, env := r.Forward(c.UserContext(), Request{
			Path:     c.Path(),
			Method:   c.Method(),
			RawQuery: string(c.Request().URI().QueryString()),
			Body:     append([]byte(nil), c.Body()...),
			Header:   header,
		})
		return c.Status(status).JSON(env)
	}
}

func bearer(v string) string {
	token := strings.TrimPrefix(v, "Bearer ")
	if token == v {
		return ""
	}
	return strings.TrimSpace(token)
}

func upstreamError(payload any) string {
	if m, ok := payload.(map[string]any); ok {
		if s, ok := m["error"].(string); ok && s != "" {
			return s
		}
	}
	return "Request failed"
}

func excerpt(raw []byte, n int) string {
	s := string(raw)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
