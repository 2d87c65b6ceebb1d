// token выпускает и проверяет подписанные токены сессии (HS256 JWT).
// Access и refresh подписываются разными секретами, поэтому токен одного
// вида не проходит проверку как токен другого.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind - вид токена.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed - токен не разбирается, не того вида или без subject.
	ErrMalformed = errors.New("token is malformed")

	// ErrInvalidSignature - подпись не сходится с настроенным секретом.
	ErrInvalidSignature = errors.New("token signature is invalid")

	// ErrExpired - срок действия токена истёк.
	ErrExpired = errors.New("token is expired")

	// ErrEmptySecret - секрет подписи не задан.
	ErrEmptySecret = errors.New("token secret is empty")

	// ErrSameSecrets - секреты access и refresh совпадают.
	ErrSameSecrets = errors.New("access and refresh secrets must differ")
)

// AccessClaims - данные аккаунта, встраиваемые в access-токен.
type AccessClaims struct {
	AccountID string
	Username  string
	Email     string
	FullName  string
}

// Claims - полезная нагрузка токена.
type Claims struct {
	AccountID string `json:"uid"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Kind      Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Options - параметры Issuer.
type Options struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
	// Now подменяет часы в тестах; nil - time.Now.
	Now func() time.Time
}

// Issuer выпускает и проверяет токены. Не хранит состояния между вызовами.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// New проверяет секреты и создаёт Issuer.
func New(opts Options) (*Issuer, error) {
	const op = "security.token.New"

	if opts.AccessSecret == "" || opts.RefreshSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	if opts.AccessSecret == opts.RefreshSecret {
		return nil, fmt.Errorf("%s: %w", op, ErrSameSecrets)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Issuer{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		now:           now,
	}, nil
}

// IssueAccess выпускает access-токен и возвращает момент его истечения.
func (i *Issuer) IssueAccess(c AccessClaims) (string, time.Time, error) {
	const op = "security.token.IssueAccess"

	if c.AccountID == "" {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	signed, exp, err := i.sign(Claims{
		AccountID: c.AccountID,
		Username:  c.Username,
		Email:     c.Email,
		FullName:  c.FullName,
		Kind:      KindAccess,
	}, i.accessTTL, i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// IssueRefresh выпускает refresh-токен. Уникальный jti делает различными
// токены, выпущенные для одного аккаунта в одну и ту же секунду.
func (i *Issuer) IssueRefresh(accountID string) (string, time.Time, error) {
	const op = "security.token.IssueRefresh"

	if accountID == "" {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	signed, exp, err := i.sign(Claims{
		AccountID: accountID,
		Kind:      KindRefresh,
	}, i.refreshTTL, i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

func (i *Issuer) sign(c Claims, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(ttl)

	c.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   c.AccountID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Verify проверяет подпись, срок, издателя и вид токена.
func (i *Issuer) Verify(tokenStr string, kind Kind) (*Claims, error) {
	const op = "security.token.Verify"

	var secret []byte
	switch kind {
	case KindAccess:
		secret = i.accessSecret
	case KindRefresh:
		secret = i.refreshSecret
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
		default:
			return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
		}
	}

	if !tok.Valid || claims.Kind != kind || claims.AccountID == "" || claims.Subject != claims.AccountID {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	return claims, nil
}
