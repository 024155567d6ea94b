package twofactor

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/binder"
	"github.com/cepalab/signguard/handler"
	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/mfa"
	"github.com/cepalab/signguard/svc/signature"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

var (
	bindJSON  = binder.JSON(binder.DefaultMaxBodySize)
	bindQuery = binder.Query()
)

func wrapJSON[R any](m *Module, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinder[handler.Context, R](bindJSON),
		handler.WithErrorHandler[handler.Context, R](handler.NewErrorHandler[handler.Context](m.log)),
	)
}

func (m *Module) wrap(h handler.HandlerFunc[handler.Context, struct{}]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler[handler.Context](m.log)),
	)
}

// fail renders err, logging failures that are not part of the domain.
func (m *Module) fail(ctx handler.Context, err error) handler.Response {
	resp := errorResponse(err)
	if !isValidation(err) && !mfa.IsDomain(err) {
		r := ctx.Request()
		m.log.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	return resp
}

func caller(ctx handler.Context) (uuid.UUID, bool) {
	id := jwt.UserIDFromContext(ctx)
	return id, id != uuid.Nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type statusResponse struct {
	State                string     `json:"state"`
	Status               string     `json:"status"`
	Enabled              bool       `json:"enabled"`
	LockedUntil          *time.Time `json:"locked_until,omitempty"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

func (m *Module) status(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	v, err := m.enrollment.Status(ctx, userID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(statusResponse{
		State:                string(v.State),
		Status:               string(v.Status),
		Enabled:              v.Enabled,
		LockedUntil:          optionalTime(v.LockedUntil),
		LastUsedAt:           optionalTime(v.LastUsedAt),
		BackupCodesRemaining: v.BackupCodesRemaining,
	})
}

type startRequest struct {
	Force bool `json:"force"`
}

type startResponse struct {
	SecretDisplay   string `json:"secret_display"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"`
}

func (m *Module) start(ctx handler.Context, req startRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	res, err := m.enrollment.Start(ctx, userID, req.Force)
	if err != nil {
		return m.fail(ctx, err)
	}

	var out startResponse
	out.SecretDisplay, _ = res.SecretDisplay.Reveal()
	out.ProvisioningURI, _ = res.ProvisioningURI.Reveal()
	out.QRCode, _ = res.QRCode.Reveal()
	return handler.JSON(out, handler.WithJSONStatus(http.StatusCreated))
}

type codeRequest struct {
	Code string `json:"code"`
}

func (r codeRequest) validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return handler.NewValidationError().Add("code", "required")
	}
	return nil
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

func (m *Module) confirm(ctx handler.Context, req codeRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}

	res, err := m.enrollment.Confirm(ctx, userID, req.Code)
	if err != nil {
		return m.fail(ctx, err)
	}
	codes, _ := res.BackupCodes.Reveal()
	return handler.JSON(backupCodesResponse{BackupCodes: codes})
}

func (m *Module) regenerate(ctx handler.Context, req codeRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}

	res, err := m.enrollment.RegenerateBackupCodes(ctx, userID, req.Code)
	if err != nil {
		return m.fail(ctx, err)
	}
	codes, _ := res.Reveal()
	return handler.JSON(backupCodesResponse{BackupCodes: codes})
}

func (m *Module) disable(ctx handler.Context, req codeRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	if err := m.enrollment.Disable(ctx, userID, req.Code); err != nil {
		return m.fail(ctx, err)
	}
	return handler.Empty()
}

type openRequest struct {
	SubjectID     string `json:"subject_id"`
	SecurityLevel string `json:"security_level"`
}

type openResponse struct {
	Required       bool               `json:"required"`
	SecurityLevel  signature.Level    `json:"security_level"`
	ChallengeID    *uuid.UUID         `json:"challenge_id,omitempty"`
	AllowedMethods []challenge.Method `json:"allowed_methods,omitempty"`
	MaxAttempts    int                `json:"max_attempts,omitempty"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
}

func (m *Module) open(ctx handler.Context, req openRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	verr := handler.NewValidationError()
	if strings.TrimSpace(req.SubjectID) == "" {
		verr.Add("subject_id", "required")
	}
	level, err := signature.ParseLevel(req.SecurityLevel)
	if err != nil {
		verr.Add("security_level", "must be one of basico, intermediario, alto, critico")
	}
	if err := verr.Err(); err != nil {
		return handler.JSONError(err)
	}

	gate, err := m.signatures.Gate(ctx, userID, req.SubjectID, level)
	if err != nil {
		return m.fail(ctx, err)
	}

	out := openResponse{Required: gate.Required, SecurityLevel: gate.Level}
	if c := gate.Challenge; c != nil {
		out.ChallengeID = &c.ID
		out.AllowedMethods = c.AllowedMethods
		out.MaxAttempts = c.MaxAttempts
		out.ExpiresAt = &c.ExpiresAt
	}
	return handler.JSON(out)
}

type attemptRequest struct {
	ChallengeID string `json:"challenge_id"`
	Method      string `json:"method"`
	Value       string `json:"value"`
}

type attemptResponse struct {
	Outcome           challenge.Outcome `json:"outcome"`
	AttemptsRemaining int               `json:"attempts_remaining"`
}

func (m *Module) attempt(ctx handler.Context, req attemptRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	verr := handler.NewValidationError()
	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		verr.Add("challenge_id", "must be a UUID")
	}
	method, err := challenge.ParseMethod(req.Method)
	if err != nil {
		verr.Add("method", "must be one of totp, qr_scan, backup_code")
	}
	if strings.TrimSpace(req.Value) == "" {
		verr.Add("value", "required")
	}
	if err := verr.Err(); err != nil {
		return handler.JSONError(err)
	}

	res, err := m.challenges.Attempt(ctx, challenge.AttemptParams{
		ChallengeID: challengeID,
		UserID:      userID,
		Method:      method,
		Value:       req.Value,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(attemptResponse{Outcome: res.Outcome, AttemptsRemaining: res.AttemptsRemaining})
}

type finalizeRequest struct {
	DocumentID  string `json:"document_id"`
	ChallengeID string `json:"challenge_id"`
}

type finalizeResponse struct {
	AuthorizationToken string           `json:"authorization_token"`
	ExpiresAt          time.Time        `json:"expires_at"`
	SecurityLevel      signature.Level  `json:"security_level"`
	Method             challenge.Method `json:"method"`
}

func (m *Module) finalize(ctx handler.Context, req finalizeRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	verr := handler.NewValidationError()
	if strings.TrimSpace(req.DocumentID) == "" {
		verr.Add("document_id", "required")
	}
	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		verr.Add("challenge_id", "must be a UUID")
	}
	if err := verr.Err(); err != nil {
		return handler.JSONError(err)
	}

	auth, err := m.signatures.Finalize(ctx, userID, req.DocumentID, challengeID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(finalizeResponse{
		AuthorizationToken: auth.Token,
		ExpiresAt:          auth.ExpiresAt,
		SecurityLevel:      auth.Level,
		Method:             auth.Method,
	})
}

type redeemRequest struct {
	DocumentID         string `json:"document_id"`
	AuthorizationToken string `json:"authorization_token"`
}

func (m *Module) redeem(ctx handler.Context, req redeemRequest) handler.Response {
	if _, ok := caller(ctx); !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	verr := handler.NewValidationError()
	if strings.TrimSpace(req.DocumentID) == "" {
		verr.Add("document_id", "required")
	}
	if strings.TrimSpace(req.AuthorizationToken) == "" {
		verr.Add("authorization_token", "required")
	}
	if err := verr.Err(); err != nil {
		return handler.JSONError(err)
	}

	rec, err := m.signatures.Redeem(ctx, req.AuthorizationToken, req.DocumentID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(rec)
}

type activityRequest struct {
	Limit int `query:"limit"`
}

type activityEntry struct {
	Action     string         `json:"action"`
	Result     audit.Result   `json:"result"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (m *Module) listActivity(ctx handler.Context, req activityRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	events, err := m.activity.Find(ctx, audit.Criteria{UserID: userID.String(), Limit: limit})
	if err != nil {
		return m.fail(ctx, err)
	}

	out := make([]activityEntry, 0, len(events))
	for _, e := range events {
		out = append(out, activityEntry{
			Action:     e.Action,
			Result:     e.Result,
			Resource:   e.Resource,
			ResourceID: e.ResourceID,
			IP:         e.IP,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	return handler.JSON(out, handler.WithJSONMeta(map[string]any{"limit": limit}))
}
