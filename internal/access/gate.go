package access

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// ParamExpireAt carries the encrypted expiry date.
	ParamExpireAt = "expire_at"
	// ParamCode carries the opaque applicant identifier.
	ParamCode = "code"
)

var (
	ErrAccessDenied      = errors.New("this interview link has expired or is invalid")
	ErrUnsupportedDevice = errors.New("this interview must be completed on a desktop or laptop computer")
)

// Expiry errors name the category only; the plaintext stays out of logs.
var errUnrecognizedExpiry = errors.New("unrecognized expiry date")

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// expiryLayouts are tried in order against the decrypted plaintext.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// Request is what the gate sees of a visitor.
type Request struct {
	ExpireAt  string
	Code      string
	UserAgent string
}

// RequestFromQuery reads the invitation parameters, undoing the space-for-plus
// mangling some transports apply to base64 values.
func RequestFromQuery(get func(string) string, userAgent string) Request {
	return Request{
		ExpireAt:  NormalizeParam(get(ParamExpireAt)),
		Code:      NormalizeParam(get(ParamCode)),
		UserAgent: userAgent,
	}
}

// NormalizeParam replaces every space with '+'.
func NormalizeParam(v string) string {
	return strings.ReplaceAll(v, " ", "+")
}

// IsMobile reports whether the user agent belongs to a phone or tablet.
func IsMobile(userAgent string) bool {
	return mobileAgent.MatchString(userAgent)
}

// ParseExpiry parses a decrypted expiry date.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty expiry date")
	}

	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		// Date.toString() appends the zone name in parentheses.
		s = s[:i]
	}

	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errUnrecognizedExpiry
}

// DecodeExpiry decrypts and parses an expire_at token.
func DecodeExpiry(token, secret string) (time.Time, error) {
	plain, err := Decrypt(token, secret)
	if err != nil {
		return time.Time{}, fmt.Errorf("decrypting token: %w", err)
	}

	expiry, err := ParseExpiry(plain)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}

	return expiry, nil
}

// MintToken produces an expire_at value for the given expiry.
func MintToken(expiry time.Time, secret string) (string, error) {
	return Encrypt(expiry.UTC().Format(time.RFC3339), secret)
}

// Check is a single gate step.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, req Request) error
}

type deviceCheck struct{}

// NewDeviceCheck rejects mobile user agents.
func NewDeviceCheck() Check {
	return deviceCheck{}
}

func (deviceCheck) Name() string { return "device" }

func (deviceCheck) Evaluate(_ context.Context, req Request) error {
	if IsMobile(req.UserAgent) {
		return ErrUnsupportedDevice
	}
	return nil
}

type tokenCheck struct {
	secret string
	now    func() time.Time
}

// NewTokenCheck accepts tokens whose decrypted expiry is strictly in the future.
func NewTokenCheck(secret string, now func() time.Time) Check {
	if now == nil {
		now = time.Now
	}
	return tokenCheck{secret: secret, now: now}
}

func (tokenCheck) Name() string { return "token" }

func (c tokenCheck) Evaluate(_ context.Context, req Request) error {
	if req.ExpireAt == "" {
		return fmt.Errorf("%w: no token", ErrAccessDenied)
	}

	expiry, err := DecodeExpiry(req.ExpireAt, c.secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	if !expiry.After(c.now()) {
		return fmt.Errorf("%w: token expired", ErrAccessDenied)
	}

	return nil
}

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Granted bool
	// Reason is the first failure in check order, nil when granted.
	Reason error
	// Failed lists the names of every failed check.
	Failed []string
}

// Denied reports whether the decision failed with target.
func (d Decision) Denied(target error) bool {
	return !d.Granted && errors.Is(d.Reason, target)
}

// Gate runs every check against a request. All checks are evaluated so the
// log shows each failure; the earliest failing check decides the reason.
type Gate struct {
	checks []Check
	logger *zap.Logger
}

// New builds a gate from explicit checks.
func New(logger *zap.Logger, checks ...Check) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{checks: checks, logger: logger}
}

// NewDefault builds the invitation gate: device first, then token.
func NewDefault(secret string, now func() time.Time, logger *zap.Logger) *Gate {
	return New(logger, NewDeviceCheck(), NewTokenCheck(secret, now))
}

// Evaluate never panics; any failure in a check is a denial.
func (g *Gate) Evaluate(ctx context.Context, req Request) Decision {
	decision := Decision{Granted: true}

	for _, check := range g.checks {
		err := evaluateSafely(ctx, check, req)
		if err == nil {
			g.logger.Debug("gate check passed", zap.String("check", check.Name()))
			continue
		}

		g.logger.Info("gate check failed",
			zap.String("check", check.Name()),
			zap.Error(err),
		)

		if decision.Granted {
			decision.Granted = false
			decision.Reason = err
		}
		decision.Failed = append(decision.Failed, check.Name())
	}

	return decision
}

func evaluateSafely(ctx context.Context, check Check, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: check %s panicked: %v", ErrAccessDenied, check.Name(), r)
		}
	}()

	return check.Evaluate(ctx, req)
}
