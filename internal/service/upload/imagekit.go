// Package upload signs client-side ImageKit uploads. The server never touches
// image bytes; it only hands the browser short-lived authentication parameters.
package upload

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/imagekit-developer/imagekit-go"

	"github.com/zhouzirui/aura/backend/internal/config"
)

// ErrNotConfigured is returned when no private key is available.
var ErrNotConfigured = errors.New("image upload is not configured")

// AuthParams are the fields ImageKit's upload API expects from an authentication endpoint.
type AuthParams struct {
	Token       string `json:"token"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"publicKey,omitempty"`
	URLEndpoint string `json:"urlEndpoint,omitempty"`
}

// Signer issues AuthParams.
type Signer struct {
	cfg      config.UploadConfig
	ik       *imagekit.ImageKit
	now      func() time.Time
	newToken func() string
}

// NewSigner creates a signer over cfg.
func NewSigner(cfg config.UploadConfig) *Signer {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	return &Signer{
		cfg:      cfg,
		ik:       newImageKit(cfg.PrivateKey, cfg.PublicKey, cfg.URLEndpoint),
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

func newImageKit(privateKey, publicKey, urlEndpoint string) *imagekit.ImageKit {
	return imagekit.NewFromParams(imagekit.NewParams{
		PrivateKey:  privateKey,
		PublicKey:   publicKey,
		UrlEndpoint: urlEndpoint,
	})
}

// Sign returns fresh authentication parameters.
func (s *Signer) Sign() (AuthParams, error) {
	if !s.cfg.Enabled() {
		return AuthParams{}, ErrNotConfigured
	}

	signed := s.ik.SignToken(imagekit.SignTokenParam{
		Token:   s.newToken(),
		Expires: s.now().Add(s.cfg.TokenTTL).Unix(),
	})
	return AuthParams{
		Token:       signed.Token,
		Expire:      signed.Expires,
		Signature:   signed.Signature,
		PublicKey:   s.cfg.PublicKey,
		URLEndpoint: s.cfg.URLEndpoint,
	}, nil
}

// Signature is hex(HMAC-SHA1(privateKey, token + expire)) as computed by ImageKit.
func Signature(privateKey, token string, expire int64) string {
	return newImageKit(privateKey, "", "").SignToken(imagekit.SignTokenParam{
		Token:   token,
		Expires: expire,
	}).Signature
}
