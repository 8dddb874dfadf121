package cad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soypat/sketch3d"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned for segments that were not sent because too
// many consecutive requests failed.
var ErrBreakerOpen = gobreaker.ErrOpenState

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("PUT %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Options configures an Uploader.
type Options struct {
	BaseURL   string `validate:"required,url"`
	ProfileID string `validate:"required"`
	Profile   Profile
	// Timeout bounds each request.
	Timeout time.Duration `validate:"gt=0"`
	// FailureThreshold is the number of consecutive failed requests that
	// opens the breaker.
	FailureThreshold uint32 `validate:"gte=1"`
	// OpenTimeout is how long the breaker stays open before letting a
	// probe request through.
	OpenTimeout time.Duration `validate:"gte=0"`
	// Client defaults to http.DefaultClient.
	Client *http.Client `validate:"-"`
}

// DefaultOptions returns options for the given service and profile.
func DefaultOptions(baseURL, profileID string) Options {
	return Options{
		BaseURL:          baseURL,
		ProfileID:        profileID,
		Profile:          DefaultProfile(),
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Uploader sends segments to a CAD profile endpoint. Requests are never
// retried; a run of failures opens a circuit breaker that rejects the
// remaining requests until OpenTimeout has passed.
type Uploader struct {
	endpoint string
	opts     Options
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	log      *zap.Logger
}

// NewUploader validates opts and returns an Uploader. A nil log discards
// all output.
func NewUploader(opts Options, log *zap.Logger) (*Uploader, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid uploader options: %w", err)
	}
	endpoint, err := url.JoinPath(opts.BaseURL, "profile", opts.ProfileID, "segment")
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	u := &Uploader{
		endpoint: endpoint,
		opts:     opts,
		client:   client,
		log:      log.With(zap.String("endpoint", endpoint)),
	}
	u.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cad-upload",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			u.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return u, nil
}

// Endpoint returns the URL segments are sent to.
func (u *Uploader) Endpoint() string { return u.endpoint }

// Upload sends one request per segment and returns how many were accepted.
// Failed segments do not stop the upload; their errors are joined.
func (u *Uploader) Upload(ctx context.Context, segs []sketch3d.ExportedSegment) (int, error) {
	payloads, err := Payloads(segs, u.opts.Profile)
	if err != nil {
		return 0, err
	}
	var (
		sent int
		errs []error
	)
	for i, pl := range payloads {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, err := u.cb.Execute(func() (interface{}, error) {
			return nil, u.put(ctx, pl)
		})
		if err != nil {
			u.log.Warn("segment upload failed", zap.Int("order", segs[i].Order), zap.Error(err))
			errs = append(errs, fmt.Errorf("segment %d: %w", segs[i].Order, err))
			continue
		}
		u.log.Debug("segment uploaded", zap.Int("order", segs[i].Order))
		sent++
	}
	return sent, errors.Join(errs...)
}

func (u *Uploader) put(ctx context.Context, pl Payload) error {
	body, err := json.Marshal(pl)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, URL: u.endpoint}
	}
	return nil
}
