package httpx

// Context keys set by the authentication middleware.
type ctxKey string

const (
	// CtxKeySubjectID carries the authenticated subject (client id).
	CtxKeySubjectID ctxKey = "httpx.subject_id"

	// CtxKeyScopes carries the token's granted scopes as []string.
	CtxKeyScopes ctxKey = "httpx.scopes"

	// CtxKeyClaims carries the full *jwtx.Claims.
	CtxKeyClaims ctxKey = "httpx.claims"
)
