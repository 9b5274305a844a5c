package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/pkg/errors"
	"github.com/jwalitptl/access-api/pkg/httputil"
)

const (
	ContextUserID = "user_id"
	ContextPGID   = "pgid"

	HeaderTenantID = "X-Tenant-ID"
)

var (
	errMissingToken  = stderrors.New("missing bearer token")
	errMissingTenant = stderrors.New("token has no pgid claim")
)

// Claims are issued by the identity service. Subject is the caller's user id.
type Claims struct {
	PGID string `json:"pgid"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret string
	Issuer string
}

type AuthMiddleware struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthMiddleware(config AuthConfig) *AuthMiddleware {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &AuthMiddleware{
		secret: []byte(config.Secret),
		parser: jwt.NewParser(opts...),
	}
}

// Authenticate verifies the bearer token and stores the caller's user id and tenant.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.parse(c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(err))
			return
		}

		c.Set(ContextPGID, claims.PGID)
		if id, err := uuid.Parse(claims.Subject); err == nil {
			c.Set(ContextUserID, id)
		}
		c.Next()
	}
}

func (m *AuthMiddleware) parse(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errMissingToken
	}

	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.PGID == "" {
		return nil, errMissingTenant
	}
	return claims, nil
}

// TenantGuard rejects requests whose X-Tenant-ID names another tenant than the token.
func TenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		requested := c.GetHeader(HeaderTenantID)
		if requested != "" && requested != c.GetString(ContextPGID) {
			httputil.RespondWithError(c, errors.Forbidden(stderrors.New("tenant mismatch")))
			return
		}
		c.Next()
	}
}
