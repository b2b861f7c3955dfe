package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// MaxCookieSize is the maximum serialized size for a cookie (4KB).
const MaxCookieSize = 4096

// Jar reads and writes cookies for a single request/response exchange. It
// signs values with the application's key list: the first key signs, every
// key verifies, so keys rotate by prepending a new one.
type Jar struct {
	w        http.ResponseWriter
	r        *http.Request
	keys     []string
	defaults Options
}

// NewJar creates a jar bound to one request/response pair. The secure flag
// (typically the negotiated protocol of the request) becomes the default
// Secure attribute for written cookies.
func NewJar(w http.ResponseWriter, r *http.Request, keys []string, secure bool, opts ...Option) *Jar {
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	defaults = applyOptions(defaults, opts)

	return &Jar{
		w:        w,
		r:        r,
		keys:     keys,
		defaults: defaults,
	}
}

// Get retrieves a cookie value from the request.
func (j *Jar) Get(name string) (string, error) {
	c, err := j.r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Set writes a cookie on the response.
func (j *Jar) Set(name, value string, opts ...Option) error {
	options := applyOptions(j.defaults, opts)

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}

	if header := c.String(); len(header) > MaxCookieSize {
		return ErrCookieTooLarge{Name: name, Size: len(header), Max: MaxCookieSize}
	}

	http.SetCookie(j.w, c)
	return nil
}

// Delete removes a cookie by expiring it.
func (j *Jar) Delete(name string) {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     j.defaults.Path,
		Domain:   j.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   j.defaults.Secure,
		HttpOnly: j.defaults.HttpOnly,
		SameSite: j.defaults.SameSite,
	})
}

// SetSigned writes a cookie whose value carries an HMAC signature.
func (j *Jar) SetSigned(name, value string, opts ...Option) error {
	if len(j.keys) == 0 {
		return ErrNoKeys
	}
	return j.Set(name, j.sign(value), opts...)
}

// GetSigned retrieves a cookie and verifies its signature against every
// key, accepting values signed by rotated-out keys.
func (j *Jar) GetSigned(name string) (string, error) {
	if len(j.keys) == 0 {
		return "", ErrNoKeys
	}
	signed, err := j.Get(name)
	if err != nil {
		return "", err
	}
	return j.verify(signed)
}

// sign appends the base64 HMAC-SHA256 of value under the newest key.
func (j *Jar) sign(value string) string {
	return value + "." + j.mac(value, j.keys[0])
}

// verify splits value from its signature and checks it against all keys.
func (j *Jar) verify(signed string) (string, error) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", ErrInvalidFormat
	}
	value, sig := signed[:i], signed[i+1:]
	for _, key := range j.keys {
		if hmac.Equal([]byte(sig), []byte(j.mac(value, key))) {
			return value, nil
		}
	}
	return "", ErrInvalidSignature
}

func (j *Jar) mac(value, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
