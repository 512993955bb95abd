// Package tunnel provides SSH local port forwarding for database connections
// that route through a jump host, and a registry that shares one live tunnel
// per distinct SSH target.
package tunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Config describes the SSH endpoint and the remote address to forward to.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	KeyPath    string
	RemoteHost string
	RemotePort int
}

// Tunnel is a live SSH local-forward: a loopback listener whose accepted
// connections are piped over one SSH client to the remote database address.
type Tunnel struct {
	client    *ssh.Client
	listener  net.Listener
	localPort int
	closeOnce sync.Once
	done      chan struct{}
}

// Start dials the SSH endpoint, binds an ephemeral loopback port, and begins
// forwarding. The returned tunnel stays up until Close.
func Start(cfg Config) (*Tunnel, error) {
	clientCfg, err := buildClientConfig(cfg.User, cfg.Password, cfg.KeyPath)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port <= 0 {
		port = 22
	}
	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, port), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s:%d: %w", cfg.Host, port, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bind local port: %w", err)
	}

	t := &Tunnel{
		client:    client,
		listener:  listener,
		localPort: listener.Addr().(*net.TCPAddr).Port,
		done:      make(chan struct{}),
	}
	go t.serve(fmt.Sprintf("%s:%d", cfg.RemoteHost, cfg.RemotePort))
	return t, nil
}

// LocalPort returns the loopback port the tunnel listens on.
func (t *Tunnel) LocalPort() int { return t.localPort }

// Close stops the listener and tears down the SSH connection. In-flight
// forwards are cut.
func (t *Tunnel) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.listener.Close()
		err = t.client.Close()
	})
	return err
}

func (t *Tunnel) serve(remoteAddr string) {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
			default:
				fmt.Fprintf(os.Stderr, "tunnel accept: %v\n", err)
			}
			return
		}
		go t.forward(local, remoteAddr)
	}
}

func (t *Tunnel) forward(local net.Conn, remoteAddr string) {
	remote, err := t.client.Dial("tcp", remoteAddr)
	if err != nil {
		local.Close()
		return
	}
	go func() {
		defer local.Close()
		defer remote.Close()
		io.Copy(remote, local)
	}()
	go func() {
		defer local.Close()
		defer remote.Close()
		io.Copy(local, remote)
	}()
}

// buildClientConfig prefers key auth when a key path is set, then password.
func buildClientConfig(user, password, keyPath string) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if password != "" {
		auth = append(auth, ssh.Password(password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("ssh tunnel: a password or key path is required")
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}
