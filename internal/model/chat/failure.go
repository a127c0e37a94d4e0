package chat

import "errors"

// Kind classifies why a backend could not produce a reply.
type Kind string

const (
	KindConfigMissing Kind = "config_missing"
	KindTransport     Kind = "transport"
	KindUpstreamEmpty Kind = "upstream_empty"
)

// Failure is an error tagged with its Kind. The cause stays reachable through Unwrap.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail wraps err as a Failure of the given kind.
func Fail(kind Kind, err error) error {
	return &Failure{Kind: kind, Err: err}
}

// KindOf reports the Kind carried by err. Unclassified errors count as transport failures.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransport
}

var (
	ErrRelayNotConfigured = Fail(KindConfigMissing, errors.New("direct line secret is not configured"))
	ErrAINotConfigured    = Fail(KindConfigMissing, errors.New("generative model credential is not configured"))
	ErrRelayPending       = Fail(KindUpstreamEmpty, errors.New("bot has not replied yet"))
)
