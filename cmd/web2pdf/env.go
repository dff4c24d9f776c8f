package main

import (
	"io"
	"net"
	"os"

	web2pdf "github.com/alnah/go-web2pdf"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	// Engine starts browsers. Nil means a RodEngine built from the config.
	Engine web2pdf.Engine
	// Listen opens the service socket.
	Listen func(network, address string) (net.Listener, error)
	// Ready, if set, is called with the bound address once the service
	// accepts connections.
	Ready func(addr net.Addr)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Listen: net.Listen,
	}
}
