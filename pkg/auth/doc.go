// Package auth manages TartalaCRM staff accounts and their bearer tokens.
//
// # Users
//
// UserStore creates, reads, updates and deletes users. Passwords are hashed
// with bcrypt before they reach the database and are never logged. A user's
// grant set is derived from their department through rbac.AssignGrantsTx,
// inside the same transaction as the user write:
//
//	users := auth.NewUserStore(db, auth.NewBcryptHasher(bcrypt.DefaultCost))
//	u, err := users.CreateUser(ctx, auth.NewUser{
//		Name:       "Support One",
//		Email:      "support1@tartala.fr",
//		Username:   "support1",
//		Password:   "s3cret",
//		Department: rbac.DepartmentSupport,
//	})
//
// Authenticate returns (nil, nil) for both an unknown username and a wrong
// password, so callers cannot tell the two apart.
//
// # Tokens
//
// TokenIssuer signs HS256 JWTs carrying only the user id and username plus
// iat/exp. Verify re-reads the user on every call so department changes and
// deletions apply immediately:
//
//	issuer, err := auth.NewTokenIssuer(secret, 24*time.Hour, users)
//	token, err := issuer.Issue(u)
//	principal, err := issuer.Verify(ctx, token)
//
// Verify fails with ErrTokenExpired, ErrInvalidSignature, ErrMalformedToken or
// ErrUnknownPrincipal.
package auth
