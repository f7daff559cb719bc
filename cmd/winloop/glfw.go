//go:build glfw

package main

import (
	"runtime"

	"github.com/joeycumines/go-winloop/backend/glfwbackend"
	"github.com/joeycumines/go-winloop/config"
)

func init() {
	// GLFW must run on the main thread
	runtime.LockOSThread()

	backends[config.BackendGLFW] = func(*config.File) (*demoBackend, error) {
		b, err := glfwbackend.New()
		if err != nil {
			return nil, err
		}
		return &demoBackend{Backend: b}, nil
	}
}
