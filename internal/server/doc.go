// Package server implements the adminkit development backend.
//
// The backend speaks the HTTP contract the httpauth provider and the
// dataprovider client expect, so the toolkit can be exercised without a
// real admin API:
//
//	GET    /healthz                also served as /api/healthz
//	POST   /auth/login             {username, password} -> 200 {token} | 401 {message}
//	POST   /auth/logout            204
//	GET    /auth/check             200 {token?} (rotated past half of its lifetime)
//	POST   /auth/register          201 | 409 "username taken"
//	POST   /auth/forgot-password   202 "reset instructions sent"
//	POST   /auth/update-password   200, ends the caller's other sessions
//	POST   /auth/can               {permission, params} -> {allowed}
//	DELETE /auth/sessions/{user}   ends every session of user
//	GET    /ws/session             websocket pushing {"type":"revoked"}
//	GET    /api/{resource}         {data: [...], total}
//	POST   /api/{resource}         201 {data}
//	GET    /api/{resource}/{id}    {data}
//	PUT    /api/{resource}/{id}    {data}
//
// # Sessions
//
// Tokens are HS256 JWTs carrying the account's roles and permissions. Each
// token's jti is tracked so a session can be revoked before it expires;
// revocation is pushed to any open /ws/session socket of that session.
// Passwords are stored as bcrypt hashes only.
//
// # Permissions
//
// /auth/can grants a permission listed in the caller's token, then
// evaluates the configured CEL rules (see the policy package). Without a
// matching rule the answer is no. DefaultPolicies grants everything to the
// "admin" role.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Port:      server.DefaultPort,
//	    Advertise: true,
//	    LogLevel:  "info",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM signals for graceful shutdown:
//  1. Withdraw the mDNS advertisement
//  2. Close session watch sockets with a going-away frame
//  3. Wait for in-flight requests to complete
//  4. Flush the logger
//
// The state is in memory and lost on exit.
package server
