package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

const (
	contextClaimsKey  = "userClaims"
	contextProfileKey = "profile"
	bearerPrefix      = "Bearer "
)

// Claims represents the authorization claims transmitted via a JWT.
// The role is never part of them: it is read from the profile on every request.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

type tokenizer struct {
	issuer       string
	key          []byte
	expiration   time.Duration
	refreshLimit time.Duration
}

func newTokenizer(conf *core.Config) *tokenizer {
	return &tokenizer{
		issuer:       conf.AppName,
		key:          []byte(conf.SecretKey),
		expiration:   conf.Server.JWTExpirationDelta,
		refreshLimit: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (t *tokenizer) claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
	}
}

func (t *tokenizer) sign(claims *Claims) (string, error) {
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	return ss, errors.Wrap(err, "signing token")
}

func (t *tokenizer) parse(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateToken generates a signed JWT token string for usr.
func GenerateToken(conf *core.Config, usr user.User) (string, error) {
	t := newTokenizer(conf)
	return t.sign(t.claims(usr))
}

// authMiddleware authenticates the bearer token and loads the acting profile, creating it if needed.
// When the token is not required, anonymous requests go through with no profile in the context.
func (s *Server) authMiddleware(required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, bearerPrefix) || len(auth) == len(bearerPrefix) {
				if required {
					return errMissingToken
				}
				return next(ctx)
			}

			claims, err := s.tokens.parse(auth[len(bearerPrefix):])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, errInvalidToken.Message).SetInternal(err)
			}
			usr, err := s.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return errInvalidToken
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			prof, err := s.UserSvc.GetOrCreateProfile(ctx.Request().Context(), usr)
			if err != nil {
				return errors.Wrap(err, "getting profile")
			}

			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextProfileKey, prof)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// getContextProfile returns the acting profile of an authenticated request.
func getContextProfile(ctx echo.Context) (user.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(user.Profile); ok {
		return prof, nil
	}
	return user.Profile{}, errUnauthorized
}

// optionalProfile returns nil for anonymous requests.
func optionalProfile(ctx echo.Context) *user.Profile {
	if prof, ok := ctx.Get(contextProfileKey).(user.Profile); ok {
		return &prof
	}
	return nil
}

func (s *Server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := s.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding user by ID")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.tokens.refreshLimit)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return s.tokens.sign(s.tokens.claims(usr, claims.OrigIssuedAt))
}
