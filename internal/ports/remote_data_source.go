package ports

import "context"

type Request struct {
	Method string
	// Path is relative to the data source base URL, e.g. "/items".
	Path          string
	Body          []byte
	Authorization string
}

type Response struct {
	StatusCode int
	Body       []byte
}

// RemoteDataSource performs one request. Transport failures are returned as
// errors; any HTTP status is returned as a Response.
type RemoteDataSource interface {
	Do(ctx context.Context, req Request) (Response, error)
}
