// Package tokens issues and verifies the signed capability tokens that grant
// retrieval of a finished archive.
//
// A token is base64url(JSON claims) "." base64url(HMAC-SHA256(secret,
// encoded claims)). Verification is a pure function of the token and the
// secret: it never consults the artifact registry and never rejects a token
// for its age. Whether the artifact still exists is decided at retrieval time.
package tokens
