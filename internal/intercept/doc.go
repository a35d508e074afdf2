// Package intercept answers outgoing HTTP requests in-process.
//
// Middleware registered on a Registry sees a reconstructed Request and may
// return a synthetic Response; the first non-nil response wins. Requests no
// middleware claims, and requests whose middleware fails, fall through to a
// real http.RoundTripper unchanged.
//
// Call mirrors the open/setRequestHeader/send sequence of a browser request
// object and drives a Lifecycle that emits the same readystatechange,
// progress, load and loadend events for synthetic and real responses.
// Transport applies the same registry to ordinary Go HTTP clients.
package intercept
