// Package app wires the branding, export and search services behind the HTTP
// surface.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"brandhub/api/internal/auth"
	"brandhub/api/internal/branding"
	"brandhub/api/internal/export"
	"brandhub/api/internal/search"
	"brandhub/api/internal/util"
)

// Exporter renders a tenant's branding as a downloadable document.
// *export.Service satisfies it; tests plug in stubs.
type Exporter interface {
	StyleGuidePDF(ctx context.Context, tenantID string) (*export.Result, error)
}

// ThemeSearcher answers tenant-scoped theme queries.
type ThemeSearcher interface {
	Search(q search.Query) search.Response
	IndexPalette(rec search.PaletteRecord)
}

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	branding *branding.Service
	exporter Exporter
	searcher ThemeSearcher
	db       Pinger
	redis    *redis.Client

	tokenSecret  []byte
	serviceToken string
	tokenTTL     int
}

type ServiceConfig struct {
	Branding     *branding.Service
	Exporter     Exporter
	Searcher     ThemeSearcher
	DB           Pinger
	Redis        *redis.Client
	TokenSecret  []byte
	ServiceToken string
	TokenTTLSecs int
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		branding:     cfg.Branding,
		exporter:     cfg.Exporter,
		searcher:     cfg.Searcher,
		db:           cfg.DB,
		redis:        cfg.Redis,
		tokenSecret:  cfg.TokenSecret,
		serviceToken: cfg.ServiceToken,
		tokenTTL:     cfg.TokenTTLSecs,
	}
}

func (s *Service) Branding() *branding.Service { return s.branding }

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

// PingRedis reports sync backend health; nil client means sync is disabled,
// which is not an error.
func (s *Service) PingRedis(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Ping(ctx).Err()
}

// IssueEditorToken mints a short-lived token for a branding editor. Guarded
// by the shared service token; editors are provisioned by the host platform,
// not here.
func (s *Service) IssueEditorToken(serviceToken, subject, name, tenantID string) (string, error) {
	if s.serviceToken == "" || serviceToken != s.serviceToken {
		return "", domainError(401, "UNAUTHORIZED", "Unauthorized", nil)
	}
	if subject == "" || tenantID == "" {
		return "", domainError(400, "INVALID_BODY", "subject and tenant are required", nil)
	}
	claims := auth.Claims{
		Sub:      subject,
		Name:     name,
		TenantID: tenantID,
		JTI:      util.NewID("jti"),
		Exp:      time.Now().Add(time.Duration(s.tokenTTL) * time.Second).Unix(),
	}
	token, err := auth.IssueToken(s.tokenSecret, claims)
	if err != nil {
		return "", fmt.Errorf("issue editor token: %w", err)
	}
	return token, nil
}

// EditorFromToken validates a bearer token and returns its claims.
func (s *Service) EditorFromToken(token string) (auth.Claims, error) {
	return auth.ParseToken(s.tokenSecret, token)
}
