// Package dataprovider defines the backend contract used by form
// controllers and an HTTP/JSON implementation of it.
//
// Client maps resource paths onto REST routes:
//
//	Create(ctx, "/users", payload)        POST /users
//	Update(ctx, "/users", "42", payload)  PUT  /users/42
//	GetOne(ctx, "/users", "42")           GET  /users/42
//
// Transient failures (network errors, 5xx, 429) are retried with exponential
// backoff. GetOne results are cached for CacheDuration and dropped whenever
// the same resource is written.
//
// Every failure is an *Error whose Message is fit for display:
//
//	resp, err := client.Create(ctx, "/users", dataprovider.Record{"name": "Bob"})
//	if err != nil {
//	    fmt.Println(dataprovider.ShortMessage(err))
//	    fmt.Println(dataprovider.Hint(err))
//	}
package dataprovider
