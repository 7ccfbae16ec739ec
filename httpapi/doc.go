// Package httpapi exposes a magicAuth engine as a JSON API on a chi router.
//
// Routes:
//
//	POST  /api/auth/magic-link   {email, name?}            -> {success, message}
//	POST  /api/auth/verify       {token} or ?token=        -> {success, user, isNewUser}
//	GET   /api/auth/me                                     -> {user} (null when anonymous)
//	PATCH /api/auth/me           {email?, name?}           -> {success, user}
//	POST  /api/auth/logout                                 -> {success, message}
//	GET   /healthz, /readyz
//
// Errors are written as {success:false, statusCode, message, requestId}
// using magicAuth.HTTPStatus and magicAuth.PublicMessage.
package httpapi
