package domain

type LoginMethod string

const (
	LoginMethodPassword  LoginMethod = "password"
	LoginMethodFederated LoginMethod = "federated"
)

type Credentials struct {
	Method   LoginMethod
	Username string
	Password string
	// Provider names a configured federated identity provider.
	Provider string
}
