// Package credentials supplies the API key used to open a session.
package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const DefaultVariable = "GEMINI_API_KEY"

var ErrNoCredential = errors.New("no credential available")

// Provider is the credential selection capability. Callers check
// HasCredential before starting a session and call PromptForCredential when
// a session fails with an authentication error.
type Provider interface {
	HasCredential() bool
	PromptForCredential(ctx context.Context) error
	Credential() (string, error)
}

// EnvProvider reads the key from an environment variable and can ask for it
// interactively when the variable is unset.
type EnvProvider struct {
	variable string
	in       io.Reader
	out      io.Writer

	value string
	mu    sync.Mutex
}

type EnvOption func(*EnvProvider)

func WithVariable(name string) EnvOption {
	return func(p *EnvProvider) {
		if name != "" {
			p.variable = name
		}
	}
}

// WithPrompt enables PromptForCredential on the given reader/writer pair.
func WithPrompt(in io.Reader, out io.Writer) EnvOption {
	return func(p *EnvProvider) {
		p.in = in
		p.out = out
	}
}

func NewEnvProvider(opts ...EnvOption) *EnvProvider {
	p := &EnvProvider{variable: DefaultVariable}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *EnvProvider) HasCredential() bool {
	_, err := p.Credential()
	return err == nil
}

func (p *EnvProvider) Credential() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value != "" {
		return p.value, nil
	}

	if value := strings.TrimSpace(os.Getenv(p.variable)); value != "" {
		p.value = value
		return value, nil
	}
	return "", fmt.Errorf("%w: %s is not set", ErrNoCredential, p.variable)
}

// PromptForCredential asks for a new key, replacing any cached one. It
// returns when a non-empty line has been read, the input ends, or ctx is
// done.
func (p *EnvProvider) PromptForCredential(ctx context.Context) error {
	if p.in == nil {
		return fmt.Errorf("%w: no prompt configured", ErrNoCredential)
	}

	if p.out != nil {
		fmt.Fprintf(p.out, "Enter %s: ", p.variable)
	}

	result := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		result <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case value := <-result:
		if value == "" {
			return fmt.Errorf("%w: empty input", ErrNoCredential)
		}
		p.mu.Lock()
		p.value = value
		p.mu.Unlock()
		return nil
	}
}

// Static is a Provider for a fixed key.
type Static string

func (s Static) HasCredential() bool { return s != "" }

func (s Static) PromptForCredential(context.Context) error {
	if s == "" {
		return ErrNoCredential
	}
	return nil
}

func (s Static) Credential() (string, error) {
	if s == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}
