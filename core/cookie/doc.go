// Package cookie provides per-request cookie access with HMAC signing and
// key rotation.
//
// A Jar is bound to one request/response exchange and is usually obtained
// lazily from the framework context. Signed operations use the
// application's key list: the newest key signs, every key verifies.
//
//	jar := cookie.NewJar(w, r, keys, secure)
//
//	if err := jar.SetSigned("session", token); err != nil {
//		return err
//	}
//
//	token, err := jar.GetSigned("session")
//	if errors.Is(err, cookie.ErrInvalidSignature) {
//		// tampered or signed by a retired key
//	}
//
// Write defaults are Path "/", HttpOnly, SameSite Lax, and Secure following
// the negotiated request protocol; all can be overridden per call with
// functional options.
package cookie
