// Package gateway is the perimeter in front of the passvault services. It
// delegates authorization of every protected request to the auth server
// and forwards accepted requests with verified identity headers.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

const (
	messageTokenMissing       = "Token is missing"
	messageTokenInvalid       = "Token is invalid or expired"
	messageServiceUnavailable = "Authentication service unavailable"

	defaultValidateTimeout = 3 * time.Second
)

// IdentityHeaders names the headers injected into forwarded requests.
// An empty Roles disables the roles header.
type IdentityHeaders struct {
	UserID   string
	Username string
	Roles    string
}

func DefaultIdentityHeaders() IdentityHeaders {
	return IdentityHeaders{UserID: "X-User-Id", Username: "X-Username", Roles: "X-User-Roles"}
}

func (h IdentityHeaders) names() []string {
	out := []string{h.UserID, h.Username}
	if h.Roles != "" {
		out = append(out, h.Roles)
	}
	return out
}

type DelegateOption func(*Delegate)

func WithValidateTimeout(d time.Duration) DelegateOption {
	return func(dl *Delegate) { dl.timeout = d }
}

func WithIdentityHeaders(h IdentityHeaders) DelegateOption {
	return func(dl *Delegate) { dl.headers = h }
}

func WithMetrics(m *Metrics) DelegateOption {
	return func(dl *Delegate) { dl.metrics = m }
}

// Delegate decides per request whether to forward it to next.
//
//   - open paths are forwarded without a validation call;
//   - a missing or non-Bearer Authorization header is a 401 without a call;
//   - a failed validation call is a 503, never a pass;
//   - valid:false is a 401 carrying the auth server's message;
//   - valid:true is forwarded with identity headers overriding any client copies.
type Delegate struct {
	open      *PathMatcher
	validator Validator
	next      http.Handler
	timeout   time.Duration
	headers   IdentityHeaders
	metrics   *Metrics
	logger    logging.Logger
}

func NewDelegate(open *PathMatcher, validator Validator, next http.Handler, logger logging.Logger, opts ...DelegateOption) *Delegate {
	d := &Delegate{
		open:      open,
		validator: validator,
		next:      next,
		timeout:   defaultValidateTimeout,
		headers:   DefaultIdentityHeaders(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Delegate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := r.Clone(ctx)
	canonicalizePath(out)

	// identity headers only ever come from the gateway
	for _, name := range d.headers.names() {
		out.Header.Del(name)
	}

	// Open paths are forwarded without a validation call, but still with the
	// canonical path and without client identity headers: the matcher must
	// judge the path the upstream will see, and an open endpoint must not be
	// handed an identity nobody verified.
	if d.open.Match(out.URL.Path) {
		d.decision(OutcomeOpen)
		d.next.ServeHTTP(w, out)
		return
	}

	header := out.Header.Get(common.AuthorizationHeaderName)
	if !hasBearerToken(header) {
		d.decision(OutcomeMissing)
		writeError(w, http.StatusUnauthorized, "unauthorized", messageTokenMissing)
		return
	}

	vctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	res, err := d.validator.Validate(vctx, header)
	if d.metrics != nil {
		d.metrics.ObserveValidate(time.Since(start))
	}

	if err == nil && res != nil && res.Valid && (res.PrincipalID == "" || res.Username == "") {
		err = errors.New("validate response without identity")
	}

	if err != nil || res == nil {
		if ctx.Err() != nil {
			// client went away; nothing to answer
			d.decision(OutcomeCanceled)
			d.logger.Debug(ctx, "client disconnected during validation", "path", out.URL.Path)
			return
		}
		d.decision(OutcomeUnavailable)
		d.logger.Warn(ctx, "token validation failed", "path", out.URL.Path, "error", errorString(err))
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", messageServiceUnavailable)
		return
	}

	if !res.Valid {
		d.decision(OutcomeRejected)
		msg := res.Message
		if msg == "" {
			msg = messageTokenInvalid
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", msg)
		return
	}

	overrides := HeaderOverrides{
		d.headers.UserID:   res.PrincipalID,
		d.headers.Username: res.Username,
	}
	if d.headers.Roles != "" {
		overrides[d.headers.Roles] = strings.Join(res.Roles, ",")
	}
	overrides.Apply(out.Header)

	d.decision(OutcomeAllowed)
	d.next.ServeHTTP(w, out.WithContext(withHeaderOverrides(ctx, overrides)))
}

// HeaderOverrides are headers the gateway owns on a forwarded request. An
// empty value removes the header.
type HeaderOverrides map[string]string

func (o HeaderOverrides) Apply(h http.Header) {
	for name, value := range o {
		if value == "" {
			h.Del(name)
			continue
		}
		h.Set(name, value)
	}
}

type overridesKey struct{}

// withHeaderOverrides records o on ctx so the proxy can re-apply it to the
// outbound request after hop-by-hop headers (including any named in the
// client's Connection header) have been removed.
func withHeaderOverrides(ctx context.Context, o HeaderOverrides) context.Context {
	return context.WithValue(ctx, overridesKey{}, o)
}

func headerOverridesFrom(ctx context.Context) HeaderOverrides {
	o, _ := ctx.Value(overridesKey{}).(HeaderOverrides)
	return o
}

func (d *Delegate) decision(outcome string) {
	if d.metrics != nil {
		d.metrics.Decision(outcome)
	}
}

// canonicalizePath resolves dot segments and duplicate slashes so the
// matcher and the upstream see the same path. A trailing slash is kept.
func canonicalizePath(r *http.Request) {
	p := r.URL.Path
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	if cleaned != p {
		r.URL.Path = cleaned
		r.URL.RawPath = ""
	}
}

func hasBearerToken(header string) bool {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	return ok && strings.EqualFold(scheme, strings.TrimSpace(common.BearerPrefix)) && strings.TrimSpace(token) != ""
}

func errorString(err error) string {
	if err == nil {
		return "empty response"
	}
	return err.Error()
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
