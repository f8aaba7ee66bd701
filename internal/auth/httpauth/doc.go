// Package httpauth is an auth.Provider for adminkit HTTP backends.
//
// The backend issues HS256 session tokens (see Claims) from /auth/login and
// revalidates them on /auth/check. The provider keeps the current token so
// it can be handed to a dataprovider.Client:
//
//	p := httpauth.New(url, httpauth.WithLoginRate(5))
//	store := auth.NewStore(p)
//	client := dataprovider.NewClient(url)
//	client.TokenSource = p.Token
//
// Watch keeps a websocket open on /ws/session; when the backend revokes the
// session the store is torn down through WatchStore.
//
// Login attempts are throttled locally with a token bucket; a spent budget
// fails with ErrThrottled before any request is sent.
package httpauth
