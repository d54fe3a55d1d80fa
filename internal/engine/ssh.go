package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/rs/zerolog"
	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHOptions configures an engine reached over SSH.
type SSHOptions struct {
	// Host is the target host name or IP.
	Host string

	// Port is the SSH port (defaults to 22 when unset).
	Port int

	// User is the SSH username (defaults to $USER).
	User string

	// KeyPath is the private key; ~/.ssh/id_ed25519 then ~/.ssh/id_rsa when unset.
	KeyPath string

	// KnownHostsPath defaults to ~/.ssh/known_hosts.
	KnownHostsPath string

	// Command and Args name the simulator on the remote host.
	Command string
	Args    []string

	// Timeout bounds the TCP connect and the whole simulation.
	Timeout time.Duration
}

// SSHEngine runs the simulator on a remote host, exchanging the same JSON
// documents as ExecEngine over the session's stdin and stdout.
type SSHEngine struct {
	opts   SSHOptions
	logger zerolog.Logger
}

// NewSSHEngine validates opts and returns an engine.
func NewSSHEngine(opts SSHOptions) (*SSHEngine, error) {
	if strings.TrimSpace(opts.Host) == "" {
		return nil, errors.New("ssh host is required")
	}
	if strings.TrimSpace(opts.Command) == "" {
		return nil, ErrNoCommand
	}
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.User == "" {
		opts.User = os.Getenv("USER")
	}
	return &SSHEngine{opts: opts, logger: logging.Component("engine-ssh")}, nil
}

// Simulate implements Engine.
func (e *SSHEngine) Simulate(ctx context.Context, req *Request) (*Result, error) {
	payload, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	config, err := buildClientConfig(e.opts)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(e.opts.Host, strconv.Itoa(e.opts.Port))
	dialer := net.Dialer{Timeout: e.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := xssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := xssh.NewClient(clientConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdin = bytes.NewReader(payload)
	session.Stdout = &stdout
	session.Stderr = &stderr

	remoteCmd := shellJoin(append([]string{e.opts.Command}, e.opts.Args...))
	e.logger.Debug().Str("host", addr).Str("command", remoteCmd).Msg("starting remote engine")

	done := make(chan error, 1)
	go func() {
		done <- session.Run(remoteCmd)
	}()

	select {
	case <-ctx.Done():
		client.Close()
		return nil, fmt.Errorf("remote engine: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			exitErr := new(xssh.ExitError)
			if errors.As(err, &exitErr) {
				return nil, fmt.Errorf("remote engine exited with code %d: %s", exitErr.ExitStatus(), tail(stderr.Bytes()))
			}
			return nil, fmt.Errorf("remote engine: %w", err)
		}
	}

	return DecodeResult(stdout.Bytes())
}

func buildClientConfig(opts SSHOptions) (*xssh.ClientConfig, error) {
	signer, err := loadSigner(opts.KeyPath)
	if err != nil {
		return nil, err
	}

	knownHostsPath := opts.KnownHostsPath
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve known_hosts: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
	}

	return &xssh.ClientConfig{
		User:            opts.User,
		Auth:            []xssh.AuthMethod{xssh.PublicKeys(signer)},
		HostKeyCallback: callback,
		Timeout:         opts.Timeout,
	}, nil
}

func loadSigner(keyPath string) (xssh.Signer, error) {
	candidates := []string{keyPath}
	if keyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve ssh key: %w", err)
		}
		candidates = []string{
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && keyPath == "" {
				continue
			}
			return nil, fmt.Errorf("read ssh key %s: %w", path, err)
		}
		signer, err := xssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", path, err)
		}
		return signer, nil
	}
	return nil, errors.New("no ssh private key found")
}

// shellJoin quotes args for a POSIX shell.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg != "" && strings.IndexFunc(arg, needsQuote) < 0 {
			quoted[i] = arg
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}
